package usecase

import (
	"context"
	"fmt"
	"strings"

	"telemed-backend/internal/converter"
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
	"telemed-backend/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound       = fmt.Errorf("%w: user not found", entity.ErrNotFound)
	ErrAlreadyRegistered  = fmt.Errorf("%w: profile already exists", entity.ErrValidation)
	ErrRoleImmutable      = fmt.Errorf("%w: role cannot be changed", entity.ErrValidation)
	ErrFieldNotApplicable = fmt.Errorf("%w: field does not apply to this role", entity.ErrValidation)
)

type UserDirectoryUsecase interface {
	Register(ctx context.Context, uid string, req *dto.RegisterUserRequest) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, uid string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	GetDoctors(ctx context.Context) (*dto.UserListResponse, error)
	GetByID(ctx context.Context, uid string) (*dto.UserResponse, error)
	Search(ctx context.Context, term string, role entity.Role) (*dto.UserListResponse, error)
}

type userDirectoryUsecase struct {
	log          *logrus.Logger
	repo         repository.DocumentRepository
	auditService service.AuditService
}

func NewUserDirectoryUsecase(log *logrus.Logger, repo repository.DocumentRepository, auditService service.AuditService) UserDirectoryUsecase {
	return &userDirectoryUsecase{
		log:          log,
		repo:         repo,
		auditService: auditService,
	}
}

// Register creates the profile of uid. A uid registers once; its role is
// fixed from then on.
func (u *userDirectoryUsecase) Register(ctx context.Context, uid string, req *dto.RegisterUserRequest) (*dto.UserResponse, error) {
	if err := entity.ValidateIdentity(uid); err != nil {
		return nil, err
	}
	if !entity.Role(req.Role).Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", entity.ErrValidation, req.Role)
	}

	user, err := converter.RegisterRequestToUser(uid, req)
	if err != nil {
		return nil, err
	}

	data := converter.UserToDocument(user)
	created, err := u.repo.CreateIfAbsent(ctx, entity.CollectionUsers, uid, data)
	if err != nil {
		u.log.Warnf("Failed to register user %s: %+v", uid, err)
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyRegistered
	}

	u.auditService.LogCreate(ctx, uid, entity.AuditActionUserRegister, entity.CollectionUsers, uid,
		entity.JSON{"role": string(user.Role), "email": user.Email})

	return u.GetByID(ctx, uid)
}

// UpdateProfile merges the given fields into uid's profile
func (u *userDirectoryUsecase) UpdateProfile(ctx context.Context, uid string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if req.Role != nil {
		return nil, ErrRoleImmutable
	}

	user, err := u.find(ctx, uid)
	if err != nil {
		return nil, err
	}

	partial := entity.JSON{}
	if req.DisplayName != nil {
		partial["displayName"] = *req.DisplayName
	}
	if req.Phone != nil {
		partial["phone"] = *req.Phone
	}
	if req.IsActive != nil {
		partial["isActive"] = *req.IsActive
	}

	doctorFields := req.Specialization != nil || req.License != nil || req.Experience != nil || req.ConsultationFee != nil
	patientFields := req.MedicalHistory != nil || req.Allergies != nil || req.EmergencyContact != nil
	if (doctorFields && !user.IsDoctor()) || (patientFields && !user.IsPatient()) {
		return nil, ErrFieldNotApplicable
	}

	if req.Specialization != nil {
		partial["specialization"] = *req.Specialization
	}
	if req.License != nil {
		partial["license"] = *req.License
	}
	if req.Experience != nil {
		partial["experience"] = *req.Experience
	}
	if req.ConsultationFee != nil {
		fee, err := converter.ParseFee(*req.ConsultationFee)
		if err != nil {
			return nil, err
		}
		partial["consultationFee"] = fee.String()
	}
	if req.MedicalHistory != nil {
		partial["medicalHistory"] = req.MedicalHistory
	}
	if req.Allergies != nil {
		partial["allergies"] = req.Allergies
	}
	if req.EmergencyContact != nil {
		partial["emergencyContact"] = converter.EmergencyContactToDocument(converter.EmergencyContactRequestToEntity(req.EmergencyContact))
	}

	if len(partial) == 0 {
		return converter.UserToResponse(user), nil
	}

	if err := u.repo.Update(ctx, entity.CollectionUsers, uid, partial); err != nil {
		u.log.Warnf("Failed to update profile %s: %+v", uid, err)
		return nil, err
	}

	changed := make([]interface{}, 0, len(partial))
	for field := range partial {
		changed = append(changed, field)
	}
	u.auditService.LogUpdate(ctx, uid, entity.AuditActionProfileUpdate, entity.CollectionUsers, uid, nil,
		entity.JSON{"fields": changed})

	return u.GetByID(ctx, uid)
}

// GetDoctors lists active doctors
func (u *userDirectoryUsecase) GetDoctors(ctx context.Context) (*dto.UserListResponse, error) {
	query := entity.NewQuery().
		Where("role", string(entity.RoleDoctor)).
		Where("isActive", true).
		OrderBy("displayName", entity.Asc)

	docs, err := u.repo.Query(ctx, entity.CollectionUsers, query)
	if err != nil {
		u.log.Warnf("Failed to query doctors: %+v", err)
		return nil, err
	}

	users := converter.DocumentsToUsers(docs)
	return &dto.UserListResponse{
		Users: converter.UsersToResponses(users),
		Total: len(users),
	}, nil
}

// GetByID returns the profile of uid, or nil when uid has not registered
func (u *userDirectoryUsecase) GetByID(ctx context.Context, uid string) (*dto.UserResponse, error) {
	doc, err := u.repo.GetByID(ctx, entity.CollectionUsers, uid)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", uid, err)
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return converter.UserToResponse(converter.DocumentToUser(doc)), nil
}

// Search matches term case-insensitively against name, email and
// specialization. Only the role filter reaches the store; the match runs over
// the fetched profiles, which is fine for a small directory but will need a
// search index as it grows.
func (u *userDirectoryUsecase) Search(ctx context.Context, term string, role entity.Role) (*dto.UserListResponse, error) {
	query := entity.NewQuery()
	if role != "" {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", entity.ErrValidation, role)
		}
		query = query.Where("role", string(role))
	}
	query = query.OrderBy("displayName", entity.Asc)

	docs, err := u.repo.Query(ctx, entity.CollectionUsers, query)
	if err != nil {
		u.log.Warnf("Failed to query users: %+v", err)
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	matched := make([]entity.User, 0, len(docs))
	for _, user := range converter.DocumentsToUsers(docs) {
		if needle == "" ||
			strings.Contains(strings.ToLower(user.DisplayName), needle) ||
			strings.Contains(strings.ToLower(user.Email), needle) ||
			strings.Contains(strings.ToLower(user.Specialization), needle) {
			matched = append(matched, user)
		}
	}

	return &dto.UserListResponse{
		Users: converter.UsersToResponses(matched),
		Total: len(matched),
	}, nil
}

func (u *userDirectoryUsecase) find(ctx context.Context, uid string) (*entity.User, error) {
	doc, err := u.repo.GetByID(ctx, entity.CollectionUsers, uid)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", uid, err)
		return nil, err
	}
	if doc == nil {
		return nil, ErrUserNotFound
	}
	return converter.DocumentToUser(doc), nil
}
