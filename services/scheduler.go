// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"meal-journal/logging"
	"meal-journal/metrics"
	"meal-journal/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogJanitor removes tags and ingredients no meal references any more.
// Meal deletes cascade to the link tables but leave the shared catalog rows.
type CatalogJanitor struct {
	DB       *gorm.DB
	Interval time.Duration
	sched    gocron.Scheduler
}

func NewCatalogJanitor(db *gorm.DB, interval time.Duration) *CatalogJanitor {
	return &CatalogJanitor{DB: db, Interval: interval}
}

// Start registers the sweep as a singleton-mode duration job.
func (j *CatalogJanitor) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(j.Interval),
		gocron.NewTask(func() {
			tags, ingredients, err := j.Sweep(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("[Janitor] sweep failed")
				return
			}
			if tags+ingredients > 0 {
				logging.Info().Int64("tags", tags).Int64("ingredients", ingredients).Msg("[Janitor] removed orphaned catalog rows")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register janitor job: %w", err)
	}
	sched.Start()
	j.sched = sched
	return nil
}

// Stop waits for a running sweep to finish.
func (j *CatalogJanitor) Stop() error {
	if j.sched == nil {
		return nil
	}
	return j.sched.Shutdown()
}

// Sweep deletes unreferenced catalog rows and returns how many went.
//
// Candidates are locked with SKIP LOCKED, so a row a meal write is upserting
// right now is left for the next run. The RESTRICT foreign keys on the link
// tables reject anything that gained a link after the candidate scan; such a
// pass removes nothing and is retried on the next tick.
func (j *CatalogJanitor) Sweep(ctx context.Context) (int64, int64, error) {
	db := j.DB.WithContext(ctx)

	tags, err := sweepOrphans(ctx, "tags", db.Where("slug IN (?)",
		db.Table("tags AS t").
			Select("t.slug").
			Where("NOT EXISTS (SELECT 1 FROM meal_tags mt WHERE mt.tag_slug = t.slug)").
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}),
	).Delete(&models.Tag{}))
	if err != nil {
		return 0, 0, err
	}

	ingredients, err := sweepOrphans(ctx, "ingredients", db.Where("id IN (?)",
		db.Table("ingredients AS i").
			Select("i.id").
			Where("NOT EXISTS (SELECT 1 FROM meal_ingredients mi WHERE mi.ingredient_id = i.id)").
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}),
	).Delete(&models.Ingredient{}))
	if err != nil {
		return tags, 0, err
	}

	metrics.JanitorRemoved.WithLabelValues("tags").Add(float64(tags))
	metrics.JanitorRemoved.WithLabelValues("ingredients").Add(float64(ingredients))
	return tags, ingredients, nil
}

func sweepOrphans(ctx context.Context, table string, res *gorm.DB) (int64, error) {
	if isForeignKeyViolation(res.Error) {
		logging.Ctx(ctx).Warn().Str("table", table).Msg("[Janitor] catalog row linked during sweep, retrying next run")
		return 0, nil
	}
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep %s: %w", table, res.Error)
	}
	return res.RowsAffected, nil
}
