package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/quiz"
	testutil "github.com/trezcool/manabi/tests"
)

func Test_courseApi_authoring(t *testing.T) {
	srv, env := newTestServer(t)
	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	tToken, sToken := getToken(t, env, teacher), getToken(t, env, student)

	errTests := []httpTest{
		{
			name:     "student",
			body:     []byte(`{"title":"Business Japanese"}`),
			token:    sToken,
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"unauthorized: teacher or admin access required"}`),
		},
		{
			name:     "blank title",
			body:     []byte(`{"title":"  "}`),
			token:    tToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"invalid request","errors":{"title":"this field cannot be blank"}}`),
		},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/courses"
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}

	rec := serve(srv, httpTest{
		method: http.MethodPost,
		path:   "/v1/courses",
		token:  tToken,
		body:   []byte(`{"title":"Business Japanese","description":"Keigo for the office","is_published":true}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c course.Course
	unmarshalBody(t, rec, &c)
	assert.Equal(t, teacher.ID, c.TeacherID)

	rec = serve(srv, httpTest{
		method: http.MethodPost,
		path:   fmt.Sprintf("/v1/courses/%d/sections", c.ID),
		token:  tToken,
		body:   []byte(`{"title":"Keigo","order_index":0}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sec course.Section
	unmarshalBody(t, rec, &sec)

	rec = serve(srv, httpTest{
		method: http.MethodPost,
		path:   fmt.Sprintf("/v1/sections/%d/chapters", sec.ID),
		token:  tToken,
		body:   []byte(`{"title":"Sonkeigo","content_type":"video","video_url":"https://videos.test/1","duration_seconds":300}`),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(srv, httpTest{
		method: http.MethodPut,
		path:   fmt.Sprintf("/v1/sections/%d/quiz", sec.ID),
		token:  tToken,
		body:   []byte(`{"title":"Keigo quiz","passing_score":50,"questions":[{"question":"Irassharu?","options":["iku","taberu"],"correct_option":0}]}`),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "correct_option")

	t.Run("structure", func(t *testing.T) {
		rec := serve(srv, httpTest{method: http.MethodGet, path: fmt.Sprintf("/v1/courses/%d", c.ID), token: sToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var st course.Structure
		unmarshalBody(t, rec, &st)
		require.Len(t, st.Sections, 1)
		assert.Len(t, st.Sections[0].Chapters, 1)
		require.NotNil(t, st.Sections[0].Quiz)
		assert.Len(t, st.Sections[0].Quiz.Questions, 1)
	})

	structureTests := []httpTest{
		{
			name:     "invalid id",
			path:     "/v1/courses/abc",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"invalid id","errors":{"id":"must be a positive integer"}}`),
		},
		{
			name:     "unknown course",
			path:     "/v1/courses/999",
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"success":false,"message":"course not found"}`),
		},
	}
	for _, tt := range structureTests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.token = http.MethodGet, sToken
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}
}

func Test_courseApi_enroll(t *testing.T) {
	srv, env := newTestServer(t)
	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	free := testutil.CreateCourse(t, env, teacher.ID, "Hiragana", 0, true)
	paid := testutil.CreateCourse(t, env, teacher.ID, "Business Japanese", 4999, true)
	token := getToken(t, env, student)

	tests := []struct {
		httpTest
		wantCreated bool
	}{
		{httpTest: httpTest{name: "first enrollment", path: fmt.Sprintf("/v1/courses/%d/enroll", free.ID), wantCode: http.StatusCreated}},
		{httpTest: httpTest{name: "already enrolled", path: fmt.Sprintf("/v1/courses/%d/enroll", free.ID), wantCode: http.StatusOK}},
		{httpTest: httpTest{
			name:     "paid course",
			path:     fmt.Sprintf("/v1/courses/%d/enroll", paid.ID),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"payment required: this course is not free"}`),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.token = http.MethodPost, token
			rec := serve(srv, tt.httpTest)
			checkCodeAndData(t, tt.httpTest, rec)
			if rec.Code < http.StatusBadRequest {
				var enr enrollment.Enrollment
				unmarshalBody(t, rec, &enr)
				assert.Equal(t, student.ID, enr.StudentID)
				assert.Equal(t, free.ID, enr.CourseID)
			}
		})
	}
}

func Test_courseApi_report(t *testing.T) {
	srv, env := newTestServer(t)
	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	other := testutil.CreateUser(t, env, "Mori", "mori@manabi.test", core.RoleTeacher)
	aiko := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	ren := testutil.CreateUser(t, env, "Ren", "ren@manabi.test", core.RoleStudent)

	c := testutil.CreateCourse(t, env, teacher.ID, "Business Japanese", 0, true)
	sec := testutil.CreateSection(t, env, c.ID, "Keigo", 0)
	ch := testutil.CreateChapter(t, env, sec.ID, course.ContentText, 0)
	testutil.CreateChapter(t, env, sec.ID, course.ContentText, 1)
	testutil.Enroll(t, env, aiko.ID, c.ID)
	testutil.Enroll(t, env, ren.ID, c.ID)

	rec := serve(srv, httpTest{
		method: http.MethodPost,
		path:   "/v1/progress",
		token:  getToken(t, env, ren),
		body:   []byte(fmt.Sprintf(`{"chapter_id":%d,"course_id":%d,"content_type":"text","completed":true}`, ch.ID, c.ID)),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	reportPath := fmt.Sprintf("/v1/courses/%d/report", c.ID)
	tToken := getToken(t, env, teacher)

	t.Run("ordering", func(t *testing.T) {
		tests := []struct {
			ordering string
			want     []int64
		}{
			{ordering: "name", want: []int64{aiko.ID, ren.ID}},
			{ordering: "-name", want: []int64{ren.ID, aiko.ID}},
			{ordering: "-completion_percentage,name", want: []int64{ren.ID, aiko.ID}},
		}
		for _, tt := range tests {
			rec := serve(srv, httpTest{method: http.MethodGet, path: reportPath + "?ordering=" + tt.ordering, token: tToken})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var rows []enrollment.ReportRow
			unmarshalBody(t, rec, &rows)
			got := make([]int64, 0, len(rows))
			for _, r := range rows {
				got = append(got, r.StudentID)
			}
			assert.Equal(t, tt.want, got, "ordering=%s", tt.ordering)
		}
	})

	errTests := []httpTest{
		{
			name:     "invalid ordering",
			path:     reportPath + "?ordering=password_hash",
			token:    tToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"message":"invalid ordering field \"password_hash\"","errors":{"ordering":"invalid field: password_hash"}}`),
		},
		{
			name:     "other teacher",
			path:     reportPath,
			token:    getToken(t, env, other),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"success":false,"message":"permission denied: you do not manage this course"}`),
		},
		{
			name:     "student",
			path:     reportPath,
			token:    getToken(t, env, aiko),
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"success":false,"message":"unauthorized: teacher or admin access required"}`),
		},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}
}

func Test_quizApi(t *testing.T) {
	srv, env := newTestServer(t)
	teacher := testutil.CreateUser(t, env, "Sato", "sato@manabi.test", core.RoleTeacher)
	student := testutil.CreateUser(t, env, "Aiko", "aiko@manabi.test", core.RoleStudent)
	c := testutil.CreateCourse(t, env, teacher.ID, "Business Japanese", 0, true)
	sec := testutil.CreateSection(t, env, c.ID, "Keigo", 0)
	testutil.CreateChapter(t, env, sec.ID, course.ContentText, 0)
	q := testutil.CreateQuiz(t, env, sec.ID, 100, 2)
	testutil.Enroll(t, env, student.ID, c.ID)
	token := getToken(t, env, student)
	path := fmt.Sprintf("/v1/quizzes/%d/attempts", q.ID)

	errTests := []httpTest{
		{
			name:     "wrong answer count",
			method:   http.MethodPost,
			path:     path,
			body:     []byte(`{"answers":[0]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown quiz",
			method:   http.MethodPost,
			path:     "/v1/quizzes/999/attempts",
			body:     []byte(`{"answers":[0,0]}`),
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"success":false,"message":"quiz not found"}`),
		},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			tt.token = token
			checkCodeAndData(t, tt, serve(srv, tt))
		})
	}

	// a failed attempt still counts as attempted
	rec := serve(srv, httpTest{method: http.MethodPost, path: path, token: token, body: []byte(`{"answers":[0,1]}`)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res quiz.SubmitResult
	unmarshalBody(t, rec, &res)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 50, res.Attempt.Score)
	assert.False(t, res.Attempt.Passed)
	assert.Equal(t, 1, res.CourseProgress.CompletedItems)
	assert.Equal(t, 2, res.CourseProgress.TotalItems)

	rec = serve(srv, httpTest{method: http.MethodGet, path: path, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var attempts []quiz.Attempt
	unmarshalBody(t, rec, &attempts)
	require.Len(t, attempts, 1)
	assert.Equal(t, student.ID, attempts[0].StudentID)
}
