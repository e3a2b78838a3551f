package postgresql

// migrations returns the ordered schema migrations for the accreditation
// store. Step graphs and rule conditions are stored as JSONB; approvals and
// operation items get their own tables so they can be appended without
// rewriting the parent row.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL DEFAULT '',
				event_id TEXT NOT NULL DEFAULT '',
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				steps JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				published_at TIMESTAMP WITH TIME ZONE,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE IF NOT EXISTS workflow_versions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				version INTEGER NOT NULL,
				steps JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, version)
			);

			CREATE TABLE IF NOT EXISTS participants (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL DEFAULT '',
				event_id TEXT NOT NULL DEFAULT '',
				full_name TEXT NOT NULL,
				email TEXT NOT NULL DEFAULT '',
				data JSONB,
				current_step_id TEXT NOT NULL DEFAULT '',
				workflow_version_id TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_participants_version
				ON participants (workflow_version_id);
			CREATE INDEX IF NOT EXISTS idx_participants_event
				ON participants (event_id, current_step_id);

			CREATE TABLE IF NOT EXISTS approvals (
				id TEXT PRIMARY KEY,
				participant_id TEXT NOT NULL REFERENCES participants (id),
				step_id TEXT NOT NULL,
				actor_id TEXT NOT NULL,
				action TEXT NOT NULL,
				remark TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_approvals_participant
				ON approvals (participant_id, created_at);

			CREATE TABLE IF NOT EXISTS auto_action_rules (
				id TEXT PRIMARY KEY,
				step_id TEXT NOT NULL,
				name TEXT NOT NULL,
				condition JSONB,
				action_type TEXT NOT NULL,
				priority INTEGER NOT NULL DEFAULT 0,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_rules_step
				ON auto_action_rules (step_id, priority);

			CREATE TABLE IF NOT EXISTS operations (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL DEFAULT '',
				event_id TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL,
				action TEXT NOT NULL,
				status TEXT NOT NULL,
				total_items INTEGER NOT NULL DEFAULT 0,
				processed_items INTEGER NOT NULL DEFAULT 0,
				success_count INTEGER NOT NULL DEFAULT 0,
				failure_count INTEGER NOT NULL DEFAULT 0,
				remarks TEXT NOT NULL DEFAULT '',
				actor_id TEXT NOT NULL,
				undo_deadline TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE IF NOT EXISTS operation_items (
				id TEXT PRIMARY KEY,
				operation_id TEXT NOT NULL REFERENCES operations (id),
				participant_id TEXT NOT NULL,
				status TEXT NOT NULL,
				previous_state JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				processed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_operation_items_operation
				ON operation_items (operation_id);

			CREATE TABLE IF NOT EXISTS audit_log (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL DEFAULT '',
				actor_id TEXT NOT NULL,
				action TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_audit_entity
				ON audit_log (entity_type, entity_id, created_at);
		`,
	}
}
