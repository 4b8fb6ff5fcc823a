package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow steps, one row per checklist item of a case plan.
			CREATE TABLE workflow_steps (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				case_id VARCHAR(255) NOT NULL,
				step_key VARCHAR(255) NOT NULL,
				title VARCHAR(255) NOT NULL,
				sequence INT NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL,
				due_date TIMESTAMP WITH TIME ZONE,
				deadline_source VARCHAR(255),
				assigned_actor_id VARCHAR(255),
				is_readiness_overridden BOOLEAN NOT NULL DEFAULT false,
				override_rationale TEXT,
				overridden_by VARCHAR(255),
				overridden_at TIMESTAMP WITH TIME ZONE,
				blocked_reason VARCHAR(50),
				blocked_detail TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (case_id, step_key)
			);

			CREATE INDEX idx_workflow_steps_case ON workflow_steps(tenant_id, case_id);
			CREATE INDEX idx_workflow_steps_status ON workflow_steps(status);
			CREATE INDEX idx_workflow_steps_due_date ON workflow_steps(due_date);

			-- Directed step -> prerequisite edges, scoped to one case.
			CREATE TABLE dependency_edges (
				case_id VARCHAR(255) NOT NULL,
				step_id UUID NOT NULL REFERENCES workflow_steps(id) ON DELETE CASCADE,
				depends_on_step_id UUID NOT NULL REFERENCES workflow_steps(id) ON DELETE CASCADE,
				PRIMARY KEY (case_id, step_id, depends_on_step_id)
			);

			CREATE INDEX idx_dependency_edges_case ON dependency_edges(case_id);

			-- Tenant actor roster with case-scoped role, read-only here.
			CREATE TABLE actors (
				id VARCHAR(255) NOT NULL,
				tenant_id VARCHAR(255) NOT NULL,
				role VARCHAR(50) NOT NULL,
				PRIMARY KEY (tenant_id, id)
			);
		`,
	}
}
