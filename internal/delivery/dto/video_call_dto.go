package dto

// EndCallRequest closes a video call and records its consultation
type EndCallRequest struct {
	Duration     int    `json:"duration" validate:"min=0,max=1440"`
	Notes        string `json:"notes" validate:"omitempty,max=5000"`
	Symptoms     string `json:"symptoms" validate:"omitempty,max=2000"`
	Diagnosis    string `json:"diagnosis" validate:"omitempty,max=2000"`
	Prescription string `json:"prescription" validate:"omitempty,max=2000"`
}

type EndCallResponse struct {
	Appointment  *AppointmentResponse  `json:"appointment"`
	Consultation *ConsultationResponse `json:"consultation"`
}
