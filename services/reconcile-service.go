package services

import (
	"context"
	"time"

	"taskhub/logging"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reconciler rebuilds each project's task list from the tasks that point at
// it, repairing lists left behind by interrupted writes.
type Reconciler struct {
	tasks    TaskRepository
	projects ProjectRepository
}

func NewReconciler(tasks TaskRepository, projects ProjectRepository) *Reconciler {
	return &Reconciler{tasks: tasks, projects: projects}
}

// ReconcileOnce returns the number of projects whose list was rewritten.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	projects, err := r.projects.FindAll(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, project := range projects {
		tasks, err := r.tasks.FindByProject(ctx, project.ID)
		if err != nil {
			return repaired, err
		}
		ids := make([]primitive.ObjectID, len(tasks))
		for i, task := range tasks {
			ids[i] = task.ID
		}
		if sameIDs(project.Tasks, ids) {
			continue
		}
		swapped, err := r.projects.SetTasks(ctx, project.ID, project.Tasks, ids)
		if err != nil {
			return repaired, err
		}
		if !swapped {
			logging.Logger.Infof("Event ID: PROJECT_TASKS_CHANGED, Description: Project %s changed during reconciliation, left for the next pass", project.ID.Hex())
			continue
		}
		repaired++
		logging.Logger.Warnf("Event ID: PROJECT_TASKS_REPAIRED, Description: Project %s task list rebuilt (%d stored, %d actual)", project.ID.Hex(), len(project.Tasks), len(ids))
	}
	return repaired, nil
}

// Run reconciles once and then every interval until ctx is cancelled. A zero
// interval runs only the first pass.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	r.runPass(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Logger.Infof("Event ID: RECONCILER_STOPPED, Description: Reconciler stopped")
			return
		case <-ticker.C:
			r.runPass(ctx)
		}
	}
}

func (r *Reconciler) runPass(ctx context.Context) {
	repaired, err := r.ReconcileOnce(ctx)
	if err != nil {
		logging.Logger.Errorf("Event ID: RECONCILE_FAILED, Description: Reconciliation pass failed: %v", err)
		return
	}
	logging.Logger.Debugf("Event ID: RECONCILE_DONE, Description: Reconciliation pass repaired %d projects", repaired)
}

// sameIDs reports whether stored holds exactly the ids in actual, in any order.
func sameIDs(stored, actual []primitive.ObjectID) bool {
	if len(stored) != len(actual) {
		return false
	}
	seen := make(map[primitive.ObjectID]struct{}, len(stored))
	for _, id := range stored {
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	for _, id := range actual {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
