package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/progress"
	testutil "github.com/trezcool/manabi/tests"
)

func Test_progressRepository_upserts(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	repo := env.ProgressRepo

	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	c := testutil.CreateCourse(t, env, teacher.ID, "Business Japanese", 0, true)
	sec := testutil.CreateSection(t, env, c.ID, "Keigo", 0)
	video := testutil.CreateChapter(t, env, sec.ID, course.ContentVideo, 0)
	text := testutil.CreateChapter(t, env, sec.ID, course.ContentText, 1)
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("video progress never regresses", func(t *testing.T) {
		pings := []progress.VideoProgress{
			{CompletionPercentage: 40, WatchTimeSeconds: 240, TotalDuration: 600},
			{CompletionPercentage: 20, WatchTimeSeconds: 120},
			{CompletionPercentage: 100, WatchTimeSeconds: 600, Completed: true},
			{CompletionPercentage: 10, WatchTimeSeconds: 60},
		}
		for i, vp := range pings {
			vp.StudentID, vp.ChapterID = student.ID, video.ID
			vp.UpdatedAt = now.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.UpsertVideoProgress(ctx, env.DB, vp))
		}

		got, err := repo.GetVideoProgress(ctx, env.DB, student.ID, video.ID)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Equal(t, float64(100), got.CompletionPercentage)
		assert.Equal(t, 600, got.WatchTimeSeconds)
		assert.Equal(t, 600, got.TotalDuration)
		// only pings that changed the row move updated_at
		assert.True(t, now.Add(2*time.Minute).Equal(got.UpdatedAt), "updated_at = %v", got.UpdatedAt)

		ids, err := repo.CompletedVideos(ctx, env.DB, student.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{video.ID}, ids)
	})

	t.Run("text completion is sticky", func(t *testing.T) {
		done := progress.TextProgress{StudentID: student.ID, ChapterID: text.ID, Completed: true, UpdatedAt: now}
		done.CompletedAt.SetValid(now)
		require.NoError(t, repo.UpsertTextProgress(ctx, env.DB, done))

		undone := progress.TextProgress{StudentID: student.ID, ChapterID: text.ID, UpdatedAt: now.Add(time.Minute)}
		require.NoError(t, repo.UpsertTextProgress(ctx, env.DB, undone))

		got, err := repo.GetTextProgress(ctx, env.DB, student.ID, text.ID)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		require.True(t, got.CompletedAt.Valid)
		assert.True(t, now.Equal(got.CompletedAt.Time))
		assert.True(t, now.Equal(got.UpdatedAt), "updated_at = %v", got.UpdatedAt)

		ids, err := repo.CompletedTexts(ctx, env.DB, student.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{text.ID}, ids)
	})

	t.Run("course progress completed_at is kept", func(t *testing.T) {
		first := progress.CourseProgress{
			StudentID:            student.ID,
			CourseID:             c.ID,
			CompletionPercentage: 100,
			CompletedSections:    1,
			CompletionStatus:     progress.StatusCompleted,
			LastAccessedAt:       now,
		}
		first.CompletedAt.SetValid(now)
		require.NoError(t, repo.UpsertCourseProgress(ctx, env.DB, first))

		again := first
		again.LastAccessedAt = now.Add(time.Hour)
		again.CompletedAt.SetValid(now.Add(time.Hour))
		require.NoError(t, repo.UpsertCourseProgress(ctx, env.DB, again))

		got, err := repo.GetCourseProgress(ctx, env.DB, student.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, progress.StatusCompleted, got.CompletionStatus)
		assert.True(t, now.Equal(got.CompletedAt.Time))
		assert.True(t, now.Add(time.Hour).Equal(got.LastAccessedAt))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetCourseProgress(ctx, env.DB, student.ID, c.ID+1)
		assert.Equal(t, progress.ErrNotFound, err)
		_, err = repo.GetTextProgress(ctx, env.DB, student.ID, video.ID)
		assert.Equal(t, progress.ErrNotFound, err)
	})
}
