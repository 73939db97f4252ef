package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"creator-hub-backend/pkg/models"

	_ "github.com/lib/pq"
)

// PostgresDatabase implements DatabaseInterface on database/sql + lib/pq.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens a pooled connection and verifies it.
func NewPostgresDatabase(dsn string) (DatabaseInterface, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresDatabase{db: db}, nil
}

// ==== Users ====

func (db *PostgresDatabase) GetUserByID(id string) (*models.User, error) {
	query := `
        SELECT id, email, COALESCE(name,''), COALESCE(avatar,''), created_at, updated_at
        FROM users
        WHERE id = $1
    `
	var u models.User
	err := db.db.QueryRow(query, id).Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ==== Hubs ====

func (db *PostgresDatabase) CreateHub(h *models.Hub) error {
	query := `
        INSERT INTO hubs (name, owner_user_id, created_at, updated_at)
        VALUES ($1, $2, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	if err := db.db.QueryRow(query, h.Name, h.OwnerUserID).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create hub: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetHub(hubID string) (*models.Hub, error) {
	var h models.Hub
	err := db.db.QueryRow(`SELECT id, name, owner_user_id, created_at, updated_at FROM hubs WHERE id = $1`, hubID).
		Scan(&h.ID, &h.Name, &h.OwnerUserID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("hub %s: %w", hubID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get hub: %w", err)
	}
	return &h, nil
}

// ==== Servers ====

func (db *PostgresDatabase) CreateServer(s *models.Server) error {
	query := `
        INSERT INTO servers (hub_id, name, owner_user_id, matrix_space_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, s.HubID, s.Name, s.OwnerUserID, nullIfEmpty(s.MatrixSpaceID)).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetServer(serverID string) (*models.Server, error) {
	query := `
        SELECT id, hub_id, name, owner_user_id, COALESCE(matrix_space_id,''), created_at, updated_at
        FROM servers WHERE id = $1
    `
	var s models.Server
	err := db.db.QueryRow(query, serverID).
		Scan(&s.ID, &s.HubID, &s.Name, &s.OwnerUserID, &s.MatrixSpaceID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("server %s: %w", serverID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return &s, nil
}

func (db *PostgresDatabase) ListServersByHub(hubID string) ([]models.Server, error) {
	rows, err := db.db.Query(`
        SELECT id, hub_id, name, owner_user_id, COALESCE(matrix_space_id,''), created_at, updated_at
        FROM servers WHERE hub_id = $1 ORDER BY created_at ASC
    `, hubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()
	var result []models.Server
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(&s.ID, &s.HubID, &s.Name, &s.OwnerUserID, &s.MatrixSpaceID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (db *PostgresDatabase) TransferServerOwnership(serverID, newOwnerUserID string) error {
	// Single row-scoped update: one owner at any instant.
	res, err := db.db.Exec(`UPDATE servers SET owner_user_id = $1, updated_at = NOW() WHERE id = $2`,
		newOwnerUserID, serverID)
	if err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("server %s: %w", serverID, ErrNotFound)
	}
	return nil
}

// ==== Channels ====

func (db *PostgresDatabase) CreateChannel(c *models.Channel) error {
	if c.Kind == "" {
		c.Kind = "text"
	}
	query := `
        INSERT INTO channels (server_id, name, kind, matrix_room_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, c.ServerID, c.Name, c.Kind, nullIfEmpty(c.MatrixRoomID)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) GetChannel(channelID string) (*models.Channel, error) {
	query := `
        SELECT id, server_id, name, kind, COALESCE(matrix_room_id,''), slow_mode_seconds, locked, created_at, updated_at
        FROM channels WHERE id = $1
    `
	var c models.Channel
	err := db.db.QueryRow(query, channelID).
		Scan(&c.ID, &c.ServerID, &c.Name, &c.Kind, &c.MatrixRoomID, &c.SlowModeSeconds, &c.Locked, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return &c, nil
}

func (db *PostgresDatabase) ListChannelsByServer(serverID string) ([]models.Channel, error) {
	rows, err := db.db.Query(`
        SELECT id, server_id, name, kind, COALESCE(matrix_room_id,''), slow_mode_seconds, locked, created_at, updated_at
        FROM channels WHERE server_id = $1 ORDER BY created_at ASC
    `, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()
	var result []models.Channel
	for rows.Next() {
		var c models.Channel
		if err := rows.Scan(&c.ID, &c.ServerID, &c.Name, &c.Kind, &c.MatrixRoomID, &c.SlowModeSeconds, &c.Locked, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (db *PostgresDatabase) SetChannelSlowMode(channelID string, seconds int) error {
	res, err := db.db.Exec(`UPDATE channels SET slow_mode_seconds = $1, updated_at = NOW() WHERE id = $2`, seconds, channelID)
	if err != nil {
		return fmt.Errorf("failed to set slow mode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return nil
}

func (db *PostgresDatabase) SetChannelLocked(channelID string, locked bool) error {
	res, err := db.db.Exec(`UPDATE channels SET locked = $1, updated_at = NOW() WHERE id = $2`, locked, channelID)
	if err != nil {
		return fmt.Errorf("failed to set channel lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return nil
}

// ==== Role bindings ====

// Scope columns are stored as empty strings for wildcard axes so the
// uniqueness constraint on (subject, role, hub, server, channel) holds
// without NULL special cases.

func (db *PostgresDatabase) CreateRoleBinding(b *models.RoleBinding) error {
	query := `
        INSERT INTO role_bindings (subject_user_id, role, hub_id, server_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (subject_user_id, role, hub_id, server_id, channel_id) DO NOTHING
        RETURNING id, created_at
    `
	err := db.db.QueryRow(query, b.Subject, string(b.Role), b.Scope.HubID, b.Scope.ServerID, b.Scope.ChannelID).
		Scan(&b.ID, &b.CreatedAt)
	if err == sql.ErrNoRows {
		// Binding already exists; grants are idempotent.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create role binding: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) DeleteRoleBinding(subject string, role models.Role, scope models.Scope) error {
	res, err := db.db.Exec(`
        DELETE FROM role_bindings
        WHERE subject_user_id = $1 AND role = $2 AND hub_id = $3 AND server_id = $4 AND channel_id = $5
    `, subject, string(role), scope.HubID, scope.ServerID, scope.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to delete role binding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("role binding: %w", ErrNotFound)
	}
	return nil
}

func (db *PostgresDatabase) ListRoleBindingsBySubject(subject string) ([]models.RoleBinding, error) {
	rows, err := db.db.Query(`
        SELECT id, subject_user_id, role, hub_id, server_id, channel_id, created_at
        FROM role_bindings WHERE subject_user_id = $1 ORDER BY created_at ASC
    `, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list role bindings: %w", err)
	}
	defer rows.Close()
	var result []models.RoleBinding
	for rows.Next() {
		var b models.RoleBinding
		var role string
		if err := rows.Scan(&b.ID, &b.Subject, &role, &b.Scope.HubID, &b.Scope.ServerID, &b.Scope.ChannelID, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Role = models.Role(role)
		result = append(result, b)
	}
	return result, rows.Err()
}

// ==== Space owner assignments ====

func (db *PostgresDatabase) CreateSpaceOwnerAssignment(a *models.SpaceOwnerAssignment) error {
	if a.Status == "" {
		a.Status = models.AssignmentActive
	}
	query := `
        INSERT INTO space_owner_assignments (server_id, assigned_user_id, assigned_by_user_id, status, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING id, created_at, updated_at
    `
	err := db.db.QueryRow(query, a.ServerID, a.AssignedUserID, a.AssignedByUserID, string(a.Status), a.ExpiresAt).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) FindActiveSpaceOwnerAssignment(serverID, userID string) (*models.SpaceOwnerAssignment, error) {
	// The expiry predicate repeats here so a stale row that has not been
	// flipped yet still never confers authority.
	query := `
        SELECT id, server_id, assigned_user_id, assigned_by_user_id, status, expires_at, created_at, updated_at
        FROM space_owner_assignments
        WHERE server_id = $1 AND assigned_user_id = $2 AND status = 'active'
          AND (expires_at IS NULL OR expires_at > NOW())
        ORDER BY created_at ASC
        LIMIT 1
    `
	a, err := db.scanAssignment(db.db.QueryRow(query, serverID, userID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func (db *PostgresDatabase) ExpireStaleSpaceOwnerAssignments(serverID, userID string) error {
	_, err := db.db.Exec(`
        UPDATE space_owner_assignments
        SET status = 'expired', updated_at = NOW()
        WHERE server_id = $1 AND assigned_user_id = $2 AND status = 'active'
          AND expires_at IS NOT NULL AND expires_at <= NOW()
    `, serverID, userID)
	if err != nil {
		return fmt.Errorf("failed to expire assignments: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) RevokeSpaceOwnerAssignment(id string) error {
	res, err := db.db.Exec(`
        UPDATE space_owner_assignments SET status = 'revoked', updated_at = NOW()
        WHERE id = $1 AND status = 'active'
    `, id)
	if err != nil {
		return fmt.Errorf("failed to revoke assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("active assignment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *PostgresDatabase) GetSpaceOwnerAssignment(id string) (*models.SpaceOwnerAssignment, error) {
	query := `
        SELECT id, server_id, assigned_user_id, assigned_by_user_id, status, expires_at, created_at, updated_at
        FROM space_owner_assignments WHERE id = $1
    `
	return db.scanAssignment(db.db.QueryRow(query, id))
}

func (db *PostgresDatabase) scanAssignment(row *sql.Row) (*models.SpaceOwnerAssignment, error) {
	var a models.SpaceOwnerAssignment
	var status string
	var expiresAt sql.NullTime
	err := row.Scan(&a.ID, &a.ServerID, &a.AssignedUserID, &a.AssignedByUserID, &status, &expiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("assignment: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	a.Status = models.AssignmentStatus(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		a.ExpiresAt = &t
	}
	return &a, nil
}

// ==== Audit log ====

func (db *PostgresDatabase) InsertModerationAction(rec *models.ModerationAction) error {
	metadata := []byte("{}")
	if rec.Metadata != nil {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		metadata = b
	}
	query := `
        INSERT INTO moderation_actions
            (actor_user_id, action, hub_id, server_id, channel_id, target_user_id, target_message_id, metadata, outcome, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        RETURNING id, created_at
    `
	err := db.db.QueryRow(query,
		rec.ActorUserID, string(rec.Action),
		rec.Scope.HubID, rec.Scope.ServerID, rec.Scope.ChannelID,
		nullIfEmpty(rec.TargetUserID), nullIfEmpty(rec.TargetMessageID),
		metadata, string(rec.Outcome), nullIfEmpty(rec.Reason),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (db *PostgresDatabase) ListModerationActions(hubID string, limit int) ([]models.ModerationAction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.db.Query(`
        SELECT id, actor_user_id, action, hub_id, server_id, channel_id,
               COALESCE(target_user_id,''), COALESCE(target_message_id,''),
               metadata, outcome, COALESCE(reason,''), created_at
        FROM moderation_actions
        WHERE hub_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, hubID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()
	var result []models.ModerationAction
	for rows.Next() {
		var rec models.ModerationAction
		var action, outcome string
		var metadata []byte
		if err := rows.Scan(&rec.ID, &rec.ActorUserID, &action,
			&rec.Scope.HubID, &rec.Scope.ServerID, &rec.Scope.ChannelID,
			&rec.TargetUserID, &rec.TargetMessageID, &metadata, &outcome, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Action = models.Action(action)
		rec.Outcome = models.AuditOutcome(outcome)
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &rec.Metadata)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// ==== Idempotency records ====

func (db *PostgresDatabase) GetIdempotencyRecord(key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := db.db.QueryRow(`
        SELECT key, request_hash, response_json, created_at FROM idempotency_keys WHERE key = $1
    `, key).Scan(&rec.Key, &rec.RequestHash, &rec.ResponseJSON, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return &rec, nil
}

func (db *PostgresDatabase) InsertIdempotencyRecord(rec *models.IdempotencyRecord) error {
	// Insert-if-absent: a concurrent retry that loses the race must not
	// overwrite the cached response already observed by other clients.
	res, err := db.db.Exec(`
        INSERT INTO idempotency_keys (key, request_hash, response_json, created_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (key) DO NOTHING
    `, rec.Key, rec.RequestHash, rec.ResponseJSON)
	if err != nil {
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateKey
	}
	return nil
}

// ==== Housekeeping ====

func (db *PostgresDatabase) HealthCheck() error {
	return db.db.Ping()
}

func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}

func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
