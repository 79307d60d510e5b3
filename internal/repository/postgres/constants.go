package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	migrationsDialect = "pgx"
	migrationsDir     = "."

	errPrincipalNotFound   = "principal not found"
	errMembershipNotFound  = "membership not found"
	errAccessTokenNotFound = "access token not found"
	errUsernameTaken       = "username or email already exists"
	errTokenNameTaken      = "access token name already exists for principal"
	errInvalidPermissions  = "invalid permissions"

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedRunMigrationsFmt        = "failed to run migrations: %w"

	errFailedCreatePrincipal   = "failed to create principal"
	errFailedGetPrincipal      = "failed to get principal"
	errFailedRecordLogin       = "failed to record login"
	errFailedDeletePrincipal   = "failed to delete principal"
	errFailedCreateMembership  = "failed to create membership"
	errFailedListMemberships   = "failed to list memberships"
	errFailedScanMembership    = "failed to scan membership"
	errFailedDeleteMembership  = "failed to delete membership"
	errFailedCreateAccessToken = "failed to create access token"
	errFailedGetAccessToken    = "failed to get access token"
	errFailedUpdateAccessToken = "failed to update access token"
	errFailedDeleteAccessToken = "failed to delete access token"
)

var (
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedRunMigrations        = func(err error) error { return fmt.Errorf(errFailedRunMigrationsFmt, err) }
)
