package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/collaborators"
	"github.com/pecsa/pecsa-admin/internal/shared"
)

const requestTimeout = 2 * time.Second

// CollaboratorStats reports collaborator headcount.
type CollaboratorStats interface {
	Stats(ctx context.Context) (collaborators.Stats, error)
}

// UserCounter reports user totals.
type UserCounter interface {
	Counts(ctx context.Context) (total, active int64, err error)
}

// RoleCounter reports how many roles exist.
type RoleCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Welcome is the greeting card shown to every user.
type Welcome struct {
	Name      string
	Position  string
	Roles     []string
	LastLogin *time.Time
}

// Shortcut is a quick-access card.
type Shortcut struct {
	Title       string
	Description string
	Href        string
}

// SystemStats is the administrator overview.
type SystemStats struct {
	Collaborators collaborators.Stats
	UsersTotal    int64
	UsersActive   int64
	Roles         int64
}

// Page is everything the dashboard template renders.
type Page struct {
	Welcome   Welcome
	Shortcuts []Shortcut
	Stats     *SystemStats
}

// Service assembles the dashboard.
type Service struct {
	collaborators CollaboratorStats
	users         UserCounter
	roles         RoleCounter
}

// NewService builds Service instance.
func NewService(collabs CollaboratorStats, users UserCounter, roles RoleCounter) *Service {
	return &Service{collaborators: collabs, users: users, roles: roles}
}

// Build returns the dashboard for p. System statistics are only gathered
// for administrators.
func (s *Service) Build(ctx context.Context, p *auth.Principal) (Page, error) {
	if p == nil {
		return Page{}, shared.ErrUnauthenticated
	}
	page := Page{
		Welcome: Welcome{
			Name:      p.FullName(),
			Position:  p.Position,
			Roles:     p.Roles,
			LastLogin: p.LastLogin,
		},
		Shortcuts: shortcutsFor(p),
	}
	if !p.IsAdmin() {
		return page, nil
	}
	stats, err := s.systemStats(ctx)
	if err != nil {
		return page, err
	}
	page.Stats = &stats
	return page, nil
}

func (s *Service) systemStats(ctx context.Context) (SystemStats, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var stats SystemStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := s.collaborators.Stats(ctx)
		if err != nil {
			return err
		}
		stats.Collaborators = c
		return nil
	})

	g.Go(func() error {
		total, active, err := s.users.Counts(ctx)
		if err != nil {
			return err
		}
		stats.UsersTotal, stats.UsersActive = total, active
		return nil
	})

	g.Go(func() error {
		n, err := s.roles.Count(ctx)
		if err != nil {
			return err
		}
		stats.Roles = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return SystemStats{}, fmt.Errorf("dashboard: stats: %w", err)
	}
	return stats, nil
}

func shortcutsFor(p *auth.Principal) []Shortcut {
	var out []Shortcut
	if p.IsAdmin() {
		out = append(out, Shortcut{
			Title:       "Administración",
			Description: "Gestiona usuarios, colaboradores y roles del sistema",
			Href:        "/users",
		})
	}
	if p.HasPermission(shared.PermSalesRead) {
		out = append(out, Shortcut{Title: "Módulo de Ventas", Description: "Próximamente"})
	}
	if p.HasPermission(shared.PermPurchasesRead) {
		out = append(out, Shortcut{Title: "Módulo de Compras", Description: "Próximamente"})
	}
	if p.HasPermission(shared.PermFinanceRead) {
		out = append(out, Shortcut{Title: "Módulo de Finanzas", Description: "Próximamente"})
	}
	return out
}
