package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schemaStatements drop and recreate every table. Running them destroys data.
var schemaStatements = []string{
	`DROP TABLE IF EXISTS user_roles CASCADE`,
	`DROP TABLE IF EXISTS users CASCADE`,
	`DROP TABLE IF EXISTS collaborators CASCADE`,
	`DROP TABLE IF EXISTS roles CASCADE`,
	`CREATE TABLE collaborators (
		id SERIAL PRIMARY KEY,
		document_number VARCHAR(20) UNIQUE NOT NULL,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		position VARCHAR(100) NOT NULL,
		phone VARCHAR(20),
		email VARCHAR(100),
		status VARCHAR(20) DEFAULT 'active',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE roles (
		id SERIAL PRIMARY KEY,
		name VARCHAR(50) UNIQUE NOT NULL,
		description TEXT,
		permissions TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		collaborator_id INTEGER UNIQUE REFERENCES collaborators(id) ON DELETE CASCADE,
		is_active BOOLEAN DEFAULT true,
		last_login TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE user_roles (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		assigned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, role_id)
	)`,
}

// SeedRole is a role inserted by Reset.
type SeedRole struct {
	Name        string
	Description string
	Permissions string
}

// SeedCollaborator is a collaborator inserted by Reset.
type SeedCollaborator struct {
	DocumentNumber string
	FirstName      string
	LastName       string
	Position       string
	Phone          string
	Email          string
}

// SeedUser is a user inserted by Reset, linked by document number and role name.
type SeedUser struct {
	Username       string
	PasswordHash   string
	DocumentNumber string
	RoleName       string
}

// SeedData groups the fixture rows written after the tables are recreated.
type SeedData struct {
	Roles         []SeedRole
	Collaborators []SeedCollaborator
	Users         []SeedUser
}

// DefaultSeed returns the stock PECSA fixtures.
func DefaultSeed() SeedData {
	return SeedData{
		Roles: []SeedRole{
			{"Administrador", "Control total del sistema", "all"},
			{"Ventas", "Gestión de ventas y clientes", "sales_read,sales_write,customers_read"},
			{"Compras", "Gestión de compras y proveedores", "purchases_read,purchases_write,suppliers_read,suppliers_write"},
			{"Finanzas", "Gestión contable y financiera", "finance_read,finance_write,reports_read"},
		},
		Collaborators: []SeedCollaborator{
			{"12345678", "Carlos", "Rodríguez", "Gerente General", "999888777", "carlos@pecsa.com"},
			{"87654321", "María", "López", "Jefe de Ventas", "999777666", "maria@pecsa.com"},
			{"11223344", "Juan", "Pérez", "Jefe de Compras", "999666555", "juan@pecsa.com"},
			{"44332211", "Ana", "García", "Contador", "999555444", "ana@pecsa.com"},
		},
		Users: []SeedUser{
			{"admin", "$2b$12$6kpU2tLRiLoP7FcPyf6a9O5MTTjONp4pwaAXtx4iSOqC27Zpuggeq", "12345678", "Administrador"},
			{"ventas", "$2b$12$coSUq62S5WnI74ZlgoLaF.eUgq43OHhwDzWlH5MiFKa3T27TkPy8i", "87654321", "Ventas"},
			{"compras", "$2b$12$4h8G6DQiLZhlJp3cYZxH9OJwHvnQw7R8UMql1dpJUKMClFDU53LCS", "11223344", "Compras"},
			{"finanzas", "$2b$12$RSBBZhZ6UyxEGtA5umTfEuB09ceSGCfhJdN0Jd85nbopLpuuUklAi", "44332211", "Finanzas"},
		},
	}
}

// Reset drops and recreates all tables, then writes seed inside one
// transaction. It must only run against a disposable database.
func Reset(ctx context.Context, b Beginner, seed SeedData) error {
	return WithTx(ctx, b, func(tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("platform/db: schema: %w", Classify(err))
			}
		}
		return writeSeed(ctx, tx, seed)
	})
}

func writeSeed(ctx context.Context, q DBTX, seed SeedData) error {
	for _, r := range seed.Roles {
		if _, err := q.Exec(ctx,
			`INSERT INTO roles (name, description, permissions) VALUES ($1, $2, $3)`,
			r.Name, r.Description, r.Permissions); err != nil {
			return fmt.Errorf("platform/db: seed role %s: %w", r.Name, Classify(err))
		}
	}
	for _, c := range seed.Collaborators {
		if _, err := q.Exec(ctx,
			`INSERT INTO collaborators (document_number, first_name, last_name, position, phone, email)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.DocumentNumber, c.FirstName, c.LastName, c.Position, c.Phone, c.Email); err != nil {
			return fmt.Errorf("platform/db: seed collaborator %s: %w", c.DocumentNumber, Classify(err))
		}
	}
	for _, u := range seed.Users {
		if _, err := q.Exec(ctx,
			`INSERT INTO users (username, password_hash, collaborator_id)
			 SELECT $1, $2, id FROM collaborators WHERE document_number = $3`,
			u.Username, u.PasswordHash, u.DocumentNumber); err != nil {
			return fmt.Errorf("platform/db: seed user %s: %w", u.Username, Classify(err))
		}
		if u.RoleName == "" {
			continue
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id)
			 SELECT u.id, r.id FROM users u, roles r WHERE u.username = $1 AND r.name = $2`,
			u.Username, u.RoleName); err != nil {
			return fmt.Errorf("platform/db: seed user role %s: %w", u.Username, Classify(err))
		}
	}
	return nil
}
