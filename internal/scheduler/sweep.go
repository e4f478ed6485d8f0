package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/arenadesk/arenadesk/internal/booking"
	"github.com/arenadesk/arenadesk/internal/db"
)

const defaultSweepCron = "*/15 * * * *"

// RegisterCompletedSweep registers the job that moves confirmed
// reservations whose end time has passed into the completed status, so
// they stop occupying slots without manual cleanup.
func RegisterCompletedSweep(database *db.DB, cronExpr string) error {
	if database == nil {
		return fmt.Errorf("completed sweep requires database")
	}
	if cronExpr == "" {
		cronExpr = defaultSweepCron
	}

	jobName := "completed_sweep"
	jobLogger := log.With().
		Str("component", "completed_sweep_job").
		Str("job_name", jobName).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		now := time.Now()
		today := now.Format(booking.DateLayout)
		nowClock := booking.FormatClock(now.Hour()*60 + now.Minute())

		swept, err := database.Queries.MarkFinishedReservationsCompleted(ctx, today, nowClock)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to sweep finished reservations")
			return
		}
		if swept > 0 {
			jobLogger.Info().Int64("swept", swept).Msg("Finished reservations marked completed")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add completed sweep job: %w", err)
	}

	jobLogger.Info().Msg("Completed sweep job registered")
	return nil
}
