package sqlite

const schema = `
-- Users table
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 1,
    is_superuser INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    last_login DATETIME
);

-- Projects table
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active'
        CHECK(status IN ('planning', 'active', 'completed', 'cancelled')),
    address TEXT NOT NULL DEFAULT '',
    manager_id INTEGER REFERENCES users(id),
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Role grants: one user, one role, one project. The triple is unique.
CREATE TABLE IF NOT EXISTS role_grants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK(role IN ('engineer', 'manager', 'supervisor')),
    granted_by INTEGER REFERENCES users(id),
    granted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(user_id, project_id, role)
);

CREATE INDEX IF NOT EXISTS idx_role_grants_user_project ON role_grants(user_id, project_id);
CREATE INDEX IF NOT EXISTS idx_role_grants_project ON role_grants(project_id);

-- Defect status catalog. Exactly one row should be marked initial.
CREATE TABLE IF NOT EXISTS defect_statuses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    order_index INTEGER NOT NULL,
    is_initial INTEGER NOT NULL DEFAULT 0,
    is_final INTEGER NOT NULL DEFAULT 0
);

-- Priority catalog
CREATE TABLE IF NOT EXISTS priorities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    urgency_level INTEGER NOT NULL CHECK(urgency_level >= 1 AND urgency_level <= 10)
);

-- Defects table
CREATE TABLE IF NOT EXISTS defects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    number TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL CHECK(length(title) <= 255),
    description TEXT NOT NULL,
    location TEXT NOT NULL DEFAULT '',
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    status_id INTEGER NOT NULL REFERENCES defect_statuses(id),
    priority_id INTEGER NOT NULL REFERENCES priorities(id),
    reporter_id INTEGER NOT NULL REFERENCES users(id),
    assignee_id INTEGER REFERENCES users(id),
    due_date DATETIME,
    estimated_hours REAL CHECK(estimated_hours IS NULL OR estimated_hours > 0),
    actual_hours REAL CHECK(actual_hours IS NULL OR actual_hours > 0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    closed_at DATETIME,
    -- Optimistic concurrency: bumped on every accepted update
    version INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_defects_project ON defects(project_id);
CREATE INDEX IF NOT EXISTS idx_defects_status ON defects(status_id);
CREATE INDEX IF NOT EXISTS idx_defects_assignee ON defects(assignee_id);
CREATE INDEX IF NOT EXISTS idx_defects_created_at ON defects(created_at);

-- Comments table
CREATE TABLE IF NOT EXISTS comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    defect_id INTEGER NOT NULL REFERENCES defects(id) ON DELETE CASCADE,
    author_id INTEGER NOT NULL REFERENCES users(id),
    content TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_comments_defect ON comments(defect_id);

-- Audit log: append-only. No UPDATE or DELETE statements exist for this
-- table anywhere in the codebase.
CREATE TABLE IF NOT EXISTS audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    defect_id INTEGER NOT NULL REFERENCES defects(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id),
    field_name TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    change_type TEXT NOT NULL
        CHECK(change_type IN ('create', 'update', 'delete', 'status_change', 'comment')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_log_defect ON audit_log(defect_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_created_at ON audit_log(created_at);

-- Named counters for atomic sequence allocation (defect numbering).
CREATE TABLE IF NOT EXISTS counters (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);
`

// Seed rows for the status and priority catalogs. INSERT OR IGNORE keeps
// re-initialization idempotent.
const seed = `
INSERT OR IGNORE INTO defect_statuses (name, display_name, order_index, is_initial, is_final) VALUES
    ('open',        'Open',        1, 1, 0),
    ('in_progress', 'In Progress', 2, 0, 0),
    ('review',      'Review',      3, 0, 0),
    ('resolved',    'Resolved',    4, 0, 0),
    ('closed',      'Closed',      5, 0, 1),
    ('rejected',    'Rejected',    6, 0, 1);

INSERT OR IGNORE INTO priorities (name, display_name, urgency_level) VALUES
    ('low',      'Low',      1),
    ('medium',   'Medium',   2),
    ('high',     'High',     3),
    ('critical', 'Critical', 4);

INSERT OR IGNORE INTO counters (name, value) VALUES ('defect_number', 0);
`
