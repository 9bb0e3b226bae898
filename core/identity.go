package core

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is the request-scoped acting user, resolved from the bearer token
// and passed explicitly to every service call.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

func (id Identity) IsZero() bool    { return id.UserID == 0 }
func (id Identity) IsStudent() bool { return id.Role == RoleStudent }
func (id Identity) IsTeacher() bool { return id.Role == RoleTeacher }
func (id Identity) IsAdmin() bool   { return id.Role == RoleAdmin }

// RequireStudent returns an AuthError unless the identity is a student.
func (id Identity) RequireStudent() error {
	if id.IsZero() || !id.IsStudent() {
		return NewAuthError("unauthorized: student access required")
	}
	return nil
}

// CanManageCourse reports whether the identity may author or inspect a course owned by teacherID.
func (id Identity) CanManageCourse(teacherID int64) bool {
	return id.IsAdmin() || (id.IsTeacher() && id.UserID == teacherID)
}
