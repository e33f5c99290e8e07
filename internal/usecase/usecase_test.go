package usecase

import (
	"io"
	"testing"
	"time"

	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"
	repoImpl "telemed-backend/internal/repository"
	"telemed-backend/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	patient = entity.Actor{ID: "patient-1", Role: entity.RolePatient}
	doctor  = entity.Actor{ID: "doctor-1", Role: entity.RoleDoctor}
	other   = entity.Actor{ID: "doctor-2", Role: entity.RoleDoctor}
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fixture struct {
	repo  repository.DocumentRepository
	subs  *service.SubscriptionManager
	audit service.AuditService
	log   *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := quietLogger()
	feed := service.NewMemoryChangeFeed(16)
	repo := repoImpl.NewPublishingDocumentRepository(repoImpl.NewMemoryDocumentRepository(), feed, log)
	subs := service.NewSubscriptionManager(repo, feed, log, 10*time.Millisecond)
	t.Cleanup(func() {
		subs.Close()
		feed.Stop()
	})
	return &fixture{
		repo:  repo,
		subs:  subs,
		audit: service.NewAuditService(log, repo),
		log:   log,
	}
}

func (f *fixture) appointments() AppointmentUsecase {
	return NewAppointmentUsecase(f.log, f.repo, f.subs, f.audit)
}

func (f *fixture) consultations() ConsultationUsecase {
	return NewConsultationUsecase(f.log, f.repo, f.audit)
}

func (f *fixture) chat() ChatUsecase {
	return NewChatUsecase(f.log, f.repo, f.subs)
}

func (f *fixture) users() UserDirectoryUsecase {
	return NewUserDirectoryUsecase(f.log, f.repo, f.audit)
}

func (f *fixture) videoCalls() VideoCallUsecase {
	return NewVideoCallUsecase(f.log, f.repo, f.audit)
}

func (f *fixture) dashboard() DashboardUsecase {
	return NewDashboardUsecase(f.log, f.repo)
}

func strPtr(s string) *string {
	return &s
}

func tomorrow() time.Time {
	return time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
}
