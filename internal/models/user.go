package models

const (
	RoleWorker     = "WORKER"
	RoleSupervisor = "SUPERVISOR"
	RoleAdmin      = "ADMIN"
)

type User struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  string `json:"role" db:"role"`
}
