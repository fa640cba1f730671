package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/sledljivost/internal/model"
)

// GrantRole enrolls identity in role. Only the administrator may grant, and
// granting a role that is already held is a no-op. Roles cannot be revoked.
func (l *Ledger) GrantRole(ctx context.Context, caller string, role model.Role, identity string) (err error) {
	const op = "grantRole"
	defer func() {
		if err != nil {
			l.rejected(op, caller, 0, err)
		}
	}()

	if caller != l.admin {
		return newError(KindUnauthorized, op, 0, "%q is not the ledger administrator", caller)
	}
	if !role.Valid() {
		return newError(KindInvalidArgument, op, 0, "unknown role %q", role)
	}
	if identity == "" {
		return newError(KindInvalidArgument, op, 0, "identity required")
	}

	added, err := l.insertRole(ctx, l.db, role, identity, caller)
	if err != nil {
		return err
	}
	if added {
		slog.Info("role granted", "role", role, "identity", identity, "by", caller)
	}
	return nil
}

// HasRole reports whether identity holds role. Unknown roles are never held.
func (l *Ledger) HasRole(ctx context.Context, role model.Role, identity string) (bool, error) {
	return l.hasRole(ctx, l.db, role, identity)
}

// ListRoles lists the roles identity holds, in custody-chain order.
func (l *Ledger) ListRoles(ctx context.Context, identity string) ([]model.Role, error) {
	rows, err := l.db.QueryContext(ctx,
		l.q(`SELECT role FROM roles WHERE identity = ?`), identity,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	held := make(map[model.Role]bool)
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		held[role] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roles := []model.Role{}
	for _, role := range model.Roles {
		if held[role] {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (l *Ledger) hasRole(ctx context.Context, q querier, role model.Role, identity string) (bool, error) {
	if !role.Valid() || identity == "" {
		return false, nil
	}
	var count int
	err := q.QueryRowContext(ctx,
		l.q(`SELECT COUNT(*) FROM roles WHERE role = ? AND identity = ?`), string(role), identity,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking role: %w", err)
	}
	return count > 0, nil
}

// insertRole reports whether the membership was new.
func (l *Ledger) insertRole(ctx context.Context, q querier, role model.Role, identity, grantedBy string) (bool, error) {
	result, err := q.ExecContext(ctx,
		l.q(`INSERT INTO roles (role, identity, granted_by) VALUES (?, ?, ?)
		 ON CONFLICT (role, identity) DO NOTHING`),
		string(role), identity, grantedBy,
	)
	if err != nil {
		return false, fmt.Errorf("granting role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("granting role: %w", err)
	}
	return n > 0, nil
}
