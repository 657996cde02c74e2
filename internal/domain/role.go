package domain

// Role is the closed set of account roles. Switches over Role are expected to
// handle every constant; unknown values fall through to the most restrictive
// behavior.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RolePrincipal  Role = "PRINCIPAL"
	RoleStaff      Role = "STAFF"
	RoleTeacher    Role = "TEACHER"
	RoleStudent    Role = "STUDENT"
	RoleParent     Role = "PARENT"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RolePrincipal, RoleStaff, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// Privileged reports whether the role has institution-wide administrative
// authority (SUPER_ADMIN, ADMIN, PRINCIPAL).
func (r Role) Privileged() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RolePrincipal:
		return true
	}
	return false
}

// SeesAllStudents reports whether the role reads student records without a
// visibility filter. Staff are unrestricted readers but not privileged.
func (r Role) SeesAllStudents() bool {
	return r.Privileged() || r == RoleStaff
}
