package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/progress"
	testutil "github.com/trezcool/manabi/tests"
)

func Test_progressApi(t *testing.T) {
	srv, env := newTestServer(t)
	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	outsider := testutil.CreateUser(t, env, "Ren", "ren@manabi.test", core.RoleStudent)

	c := testutil.CreateCourse(t, env, teacher.ID, "Business Japanese", 0, true)
	sec := testutil.CreateSection(t, env, c.ID, "Keigo", 0)
	text1 := testutil.CreateChapter(t, env, sec.ID, course.ContentText, 0)
	text2 := testutil.CreateChapter(t, env, sec.ID, course.ContentText, 1)
	testutil.Enroll(t, env, student.ID, c.ID)

	token := getToken(t, env, student)
	ping := func(chapterID int64, completed bool) []byte {
		return []byte(fmt.Sprintf(
			`{"chapter_id":%d,"section_id":%d,"course_id":%d,"content_type":"text","completed":%t}`,
			chapterID, sec.ID, c.ID, completed,
		))
	}

	errTests := []httpTest{
		{
			name:     "unknown action",
			body:     []byte(fmt.Sprintf(`{"action":"lol","course_id":%d}`, c.ID)),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"unknown action \"lol\"","errors":{"action":"unknown action"}}`),
		},
		{
			name:     "complete course without course",
			body:     []byte(`{"action":"complete_course"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"course_id is required","errors":{"course_id":"this field is required"}}`),
		},
		{
			name:     "missing course",
			body:     []byte(fmt.Sprintf(`{"chapter_id":%d,"content_type":"text"}`, text1.ID)),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"invalid request","errors":{"course_id":"this field is required"}}`),
		},
		{
			name:     "malformed body",
			body:     []byte(`{"chapter_id":`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not enrolled",
			body:     ping(text1.ID, true),
			token:    getToken(t, env, outsider),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"you are not enrolled in this course"}`),
		},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/progress"
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}

	t.Run("chapter ping", func(t *testing.T) {
		rec := serve(srv, httpTest{method: http.MethodPost, path: "/v1/progress", token: token, body: ping(text1.ID, true)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp progress.Response
		unmarshalBody(t, rec, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, progress.CourseSummary{CompletedItems: 1, TotalItems: 2, Percentage: 50}, resp.CourseProgress)
		require.NotNil(t, resp.SectionProgress)
		assert.Equal(t, progress.SectionSummary{CompletedChapters: 1, TotalChapters: 2}, *resp.SectionProgress)
	})

	t.Run("summary", func(t *testing.T) {
		rec := serve(srv, httpTest{method: http.MethodGet, path: fmt.Sprintf("/v1/courses/%d/progress", c.ID), token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sum progress.Summary
		unmarshalBody(t, rec, &sum)
		assert.Equal(t, c.ID, sum.CourseID)
		assert.Equal(t, 50, sum.Percentage)
		assert.Equal(t, progress.StatusInProgress, sum.Status)
		assert.False(t, sum.Finished)
		require.Len(t, sum.Sections, 1)
	})

	t.Run("complete course", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"action":"complete_course","course_id":%d}`, c.ID))
		rec := serve(srv, httpTest{method: http.MethodPost, path: "/v1/progress", token: token, body: body})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp progress.Response
		unmarshalBody(t, rec, &resp)
		assert.Equal(t, progress.CourseSummary{CompletedItems: 2, TotalItems: 2, Percentage: 100}, resp.CourseProgress)
		assert.Nil(t, resp.SectionProgress)

		// un-completing a chapter afterwards never regresses a finished course
		rec = serve(srv, httpTest{method: http.MethodPost, path: "/v1/progress", token: token, body: ping(text2.ID, false)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &resp)
		assert.Equal(t, 100, resp.CourseProgress.Percentage)
	})
}
