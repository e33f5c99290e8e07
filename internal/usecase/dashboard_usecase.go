package usecase

import (
	"context"

	"telemed-backend/internal/converter"
	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type DashboardUsecase interface {
	GetStats(ctx context.Context, actor entity.Actor) (*dto.DashboardStatsResponse, error)
}

type dashboardUsecase struct {
	log  *logrus.Logger
	repo repository.DocumentRepository
}

func NewDashboardUsecase(log *logrus.Logger, repo repository.DocumentRepository) DashboardUsecase {
	return &dashboardUsecase{
		log:  log,
		repo: repo,
	}
}

// GetStats counts the actor's appointments and consultations. The counts are
// independent and run concurrently.
func (u *dashboardUsecase) GetStats(ctx context.Context, actor entity.Actor) (*dto.DashboardStatsResponse, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}

	field := actor.Role.ParticipantField()
	mine := entity.NewQuery().Where(field, actor.ID)
	stats := &entity.DashboardStats{Role: actor.Role}

	g, gctx := errgroup.WithContext(ctx)
	count := func(collection string, query *entity.Query, dst *int) {
		g.Go(func() error {
			docs, err := u.repo.Query(gctx, collection, query)
			if err != nil {
				return err
			}
			*dst = len(docs)
			return nil
		})
	}

	count(entity.CollectionAppointments, mine, &stats.TotalAppointments)
	switch actor.Role {
	case entity.RoleDoctor:
		count(entity.CollectionAppointments, mine.Where("status", string(entity.AppointmentStatusScheduled)), &stats.PendingAppointments)
		count(entity.CollectionConsultations, mine.Where("status", string(entity.ConsultationStatusCompleted)), &stats.CompletedConsultations)
	case entity.RolePatient:
		count(entity.CollectionConsultations, mine, &stats.TotalConsultations)
	}

	if err := g.Wait(); err != nil {
		u.log.Warnf("Failed to compute dashboard stats for %s: %+v", actor.ID, err)
		return nil, err
	}

	return converter.DashboardStatsToResponse(stats), nil
}
