package database

// schema 建表语句，JSON 结构字段以 JSONB 保存
var schema = []string{
	`CREATE TABLE IF NOT EXISTS technicians (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		working_hours JSONB,
		skills JSONB NOT NULL DEFAULT '[]',
		certifications JSONB NOT NULL DEFAULT '[]',
		home_zip TEXT NOT NULL DEFAULT '',
		location JSONB,
		max_travel_miles INT NOT NULL DEFAULT 0,
		max_jobs_per_day INT NOT NULL DEFAULT 0,
		max_hours_per_day INT NOT NULL DEFAULT 0,
		default_buffer_minutes INT NOT NULL DEFAULT 0,
		preferred_zones JSONB NOT NULL DEFAULT '[]',
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL DEFAULT '',
		required_skills JSONB NOT NULL DEFAULT '[]',
		required_certifications JSONB NOT NULL DEFAULT '[]',
		estimated_duration INT NOT NULL DEFAULT 60,
		scheduled_date DATE,
		scheduled_time TEXT NOT NULL DEFAULT '',
		location JSONB,
		zone TEXT NOT NULL DEFAULT '',
		crew_requirements JSONB,
		assigned_tech_id TEXT NOT NULL DEFAULT '',
		assigned_crew JSONB NOT NULL DEFAULT '[]',
		assigned_vehicle_id TEXT NOT NULL DEFAULT '',
		line_items JSONB NOT NULL DEFAULT '[]',
		multi_day_schedule JSONB NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_scheduled_date ON jobs (scheduled_date)`,
	`CREATE TABLE IF NOT EXISTS time_off (
		id BIGSERIAL PRIMARY KEY,
		tech_id TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		plate TEXT NOT NULL DEFAULT '',
		passenger_capacity INT NOT NULL DEFAULT 0,
		out_of_service BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS assignment_plans (
		id TEXT PRIMARY KEY,
		plan_date DATE NOT NULL,
		summary JSONB NOT NULL,
		entries JSONB NOT NULL,
		committed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
