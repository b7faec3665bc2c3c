package postgres

// SQL queries for raw sample storage and key/value state.

const (
	// querySaveSample inserts a sample keyed by (metric, id).
	// ON CONFLICT DO NOTHING affects zero rows for duplicates.
	querySaveSample = `
		INSERT INTO samples (
			metric, id, recorded_at, count, value, bpm, ingested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (metric, id) DO NOTHING
	`

	// queryRetrieveSamples fetches one metric's samples in a closed time range.
	// Exact window semantics (half-open vs closed) are applied by the caller.
	queryRetrieveSamples = `
		SELECT
			metric, id, recorded_at, count, value, bpm
		FROM samples
		WHERE metric = $1
		  AND recorded_at >= $2
		  AND recorded_at <= $3
		ORDER BY recorded_at ASC, id ASC
	`

	querySaveSleepSession = `
		INSERT INTO sleep_sessions (
			id, start_at, end_at, stages, ingested_at
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	// queryRetrieveSleepSessions gates on session start only; a session that
	// started in range is returned whole, whatever its end.
	queryRetrieveSleepSessions = `
		SELECT
			id, start_at, end_at, stages
		FROM sleep_sessions
		WHERE start_at >= $1
		  AND start_at <= $2
		ORDER BY start_at ASC, id ASC
	`

	queryGetState = `SELECT value FROM kv_state WHERE namespace = $1 AND key = $2`

	queryUpsertState = `
		INSERT INTO kv_state (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key)
		DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	// queryLockNamespace serializes writers of one namespace for the
	// duration of a transaction.
	queryLockNamespace = `SELECT pg_advisory_xact_lock(hashtext($1))`

	// Session-level named locks use the two-key form, a separate lock space
	// from queryLockNamespace, so a holder can still write state.
	queryAcquireLock = `SELECT pg_advisory_lock(hashtext('lia-sync'), hashtext($1))`
	queryReleaseLock = `SELECT pg_advisory_unlock(hashtext('lia-sync'), hashtext($1))`
)
