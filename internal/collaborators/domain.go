package collaborators

import "time"

// Status is the lifecycle state of a collaborator.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Collaborator is an employee record, independent of system access.
type Collaborator struct {
	ID             int64     `db:"id"`
	DocumentNumber string    `db:"document_number"`
	FirstName      string    `db:"first_name"`
	LastName       string    `db:"last_name"`
	Position       string    `db:"position"`
	Phone          *string   `db:"phone"`
	Email          *string   `db:"email"`
	Status         Status    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// FullName joins first and last name.
func (c Collaborator) FullName() string {
	return c.FirstName + " " + c.LastName
}

// IsActive reports whether the collaborator is active.
func (c Collaborator) IsActive() bool {
	return c.Status == StatusActive
}

// CreateInput carries the registration form.
type CreateInput struct {
	DocumentNumber string `validate:"required,max=20"`
	FirstName      string `validate:"required,max=100"`
	LastName       string `validate:"required,max=100"`
	Position       string `validate:"required,max=100"`
	Phone          string `validate:"omitempty,max=20"`
	Email          string `validate:"omitempty,max=100,email"`
	Status         Status `validate:"omitempty,oneof=active inactive"`
}

// UpdateInput carries the editable fields. The document number is immutable.
type UpdateInput struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Position  string `validate:"required,max=100"`
	Phone     string `validate:"omitempty,max=20"`
	Email     string `validate:"omitempty,max=100,email"`
	Status    Status `validate:"omitempty,oneof=active inactive"`
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status Status
	Search string
}

// PositionCount is the headcount of one position.
type PositionCount struct {
	Position string `db:"position"`
	Count    int64  `db:"count"`
}

// Stats summarizes the collaborator table.
type Stats struct {
	Total        int64
	Active       int64
	Inactive     int64
	Positions    int64
	TopPositions []PositionCount
}
