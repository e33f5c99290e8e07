package converter

import (
	"fmt"

	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// DocumentToUser maps a users document onto the User entity
func DocumentToUser(doc *entity.Document) *entity.User {
	if doc == nil {
		return nil
	}
	d := doc.Data

	user := &entity.User{
		ID:          doc.ID,
		Email:       d.String("email"),
		DisplayName: d.String("displayName"),
		Role:        entity.Role(d.String("role")),
		Phone:       d.String("phone"),
		IsActive:    d.Bool("isActive"),
		CreatedAt:   d.Time(entity.FieldCreatedAt),
		UpdatedAt:   d.Time(entity.FieldUpdatedAt),
	}

	switch user.Role {
	case entity.RoleDoctor:
		user.Specialization = d.String("specialization")
		user.License = d.String("license")
		user.Experience = d.Int("experience")
		user.ConsultationFee = parseFee(d["consultationFee"])
		user.Rating = d.Float("rating")
	case entity.RolePatient:
		user.MedicalHistory = d.Strings("medicalHistory")
		user.Allergies = d.Strings("allergies")
		if ec := d.Map("emergencyContact"); ec != nil {
			user.EmergencyContact = &entity.EmergencyContact{
				Name:         ec.String("name"),
				Phone:        ec.String("phone"),
				Relationship: ec.String("relationship"),
			}
		}
	}

	return user
}

// DocumentsToUsers converts a slice of users documents
func DocumentsToUsers(docs []entity.Document) []entity.User {
	users := make([]entity.User, len(docs))
	for i := range docs {
		users[i] = *DocumentToUser(&docs[i])
	}
	return users
}

// UserToDocument renders the stored fields of a user. Role-specific fields are
// only written for the matching role.
func UserToDocument(user *entity.User) entity.JSON {
	data := entity.JSON{
		"email":       user.Email,
		"displayName": user.DisplayName,
		"role":        string(user.Role),
		"phone":       user.Phone,
		"isActive":    user.IsActive,
	}

	switch user.Role {
	case entity.RoleDoctor:
		data["specialization"] = user.Specialization
		data["license"] = user.License
		data["experience"] = user.Experience
		data["consultationFee"] = user.ConsultationFee.String()
		data["rating"] = user.Rating
	case entity.RolePatient:
		data["medicalHistory"] = stringsOrEmpty(user.MedicalHistory)
		data["allergies"] = stringsOrEmpty(user.Allergies)
		if user.EmergencyContact != nil {
			data["emergencyContact"] = EmergencyContactToDocument(user.EmergencyContact)
		}
	}

	return data
}

// EmergencyContactToDocument renders a nested emergency contact
func EmergencyContactToDocument(ec *entity.EmergencyContact) entity.JSON {
	return entity.JSON{
		"name":         ec.Name,
		"phone":        ec.Phone,
		"relationship": ec.Relationship,
	}
}

// RegisterRequestToUser builds the profile for uid from a registration request
func RegisterRequestToUser(uid string, req *dto.RegisterUserRequest) (*entity.User, error) {
	user := &entity.User{
		ID:          uid,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        entity.Role(req.Role),
		Phone:       req.Phone,
		IsActive:    true,
	}

	switch user.Role {
	case entity.RoleDoctor:
		fee, err := ParseFee(req.ConsultationFee)
		if err != nil {
			return nil, err
		}
		user.Specialization = req.Specialization
		user.License = req.License
		user.Experience = req.Experience
		user.ConsultationFee = fee
	case entity.RolePatient:
		user.MedicalHistory = req.MedicalHistory
		user.Allergies = req.Allergies
		user.EmergencyContact = EmergencyContactRequestToEntity(req.EmergencyContact)
	}

	return user, nil
}

// EmergencyContactRequestToEntity converts the request form of an emergency contact
func EmergencyContactRequestToEntity(req *dto.EmergencyContactRequest) *entity.EmergencyContact {
	if req == nil {
		return nil
	}
	return &entity.EmergencyContact{
		Name:         req.Name,
		Phone:        req.Phone,
		Relationship: req.Relationship,
	}
}

// ParseFee parses a consultation fee; an empty string is a zero fee
func ParseFee(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: consultation fee %q", entity.ErrValidation, s)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: consultation fee must not be negative", entity.ErrValidation)
	}
	return fee, nil
}

func parseFee(v interface{}) decimal.Decimal {
	switch t := v.(type) {
	case string:
		fee, err := decimal.NewFromString(t)
		if err == nil {
			return fee
		}
	case float64:
		return decimal.NewFromFloat(t)
	case int:
		return decimal.NewFromInt(int64(t))
	}
	return decimal.Zero
}

// UserToResponse converts a User entity to UserResponse DTO
// Includes the doctor or patient profile matching the role
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	response := &dto.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Phone:       user.Phone,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}

	if user.IsDoctor() {
		response.DoctorProfile = &dto.DoctorProfileResponse{
			Specialization:  user.Specialization,
			License:         user.License,
			Experience:      user.Experience,
			ConsultationFee: user.ConsultationFee.StringFixed(2),
			Rating:          user.Rating,
		}
	}

	if user.IsPatient() {
		response.PatientProfile = &dto.PatientProfileResponse{
			MedicalHistory: stringsOrEmpty(user.MedicalHistory),
			Allergies:      stringsOrEmpty(user.Allergies),
		}
		if ec := user.EmergencyContact; ec != nil {
			response.PatientProfile.EmergencyContact = &dto.EmergencyContactResponse{
				Name:         ec.Name,
				Phone:        ec.Phone,
				Relationship: ec.Relationship,
			}
		}
	}

	return response
}

// UsersToResponses converts a slice of User entities to slice of UserResponse DTOs
func UsersToResponses(users []entity.User) []dto.UserResponse {
	responses := make([]dto.UserResponse, len(users))
	for i := range users {
		responses[i] = *UserToResponse(&users[i])
	}
	return responses
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
