package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/progress"
)

// reconcileCmd recomputes the stored progress of one student, or of every student enrolled in the course.
func (cli *commandLine) reconcileCmd() *cobra.Command {
	var courseID, studentID int64

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute stored course progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			studentIDs := []int64{studentID}
			if studentID == 0 {
				ids, err := cli.enrollmentSvc.StudentIDs(ctx, courseID)
				if err != nil {
					return errors.Wrapf(err, "listing students of course %d", courseID)
				}
				studentIDs = ids
			}

			for _, id := range studentIDs {
				res, err := cli.reconcile(ctx, id, courseID)
				if err != nil {
					return errors.Wrapf(err, "reconciling student %d", id)
				}
				cmd.Printf("student %d: %d/%d items, %d%% %s\n", id, res.CompletedItems, res.TotalItems, res.Percentage, res.Status)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "the course id (required)")
	cmd.Flags().Int64Var(&studentID, "student", 0, "only reconcile this student")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func (cli *commandLine) reconcile(ctx context.Context, studentID, courseID int64) (progress.Result, error) {
	var res progress.Result
	err := core.RunInTx(ctx, cli.db, func(tx core.DBExecutor) error {
		var err error
		res, err = cli.progressSvc.Reconcile(ctx, tx, studentID, courseID)
		return err
	})
	if err != nil {
		return progress.Result{}, err
	}
	cli.progressSvc.NotifyCompletion(ctx, studentID, courseID, res)
	return res, nil
}
