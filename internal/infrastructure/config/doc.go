// Package config handles loading and validating graydb configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//   - Converting the database section into dbal.Config and typed attributes
//
// Security Considerations:
//   - Database and broker passwords should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/graydb.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dbCfg, attrs, err := cfg.Database.DBAL()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	conn, err := dbal.Open(ctx, dbCfg.Driver, dbCfg, attrs)
//
// Attribute values use their lower-case names in YAML:
//
//	database:
//	  attributes:
//	    errmode: warning        # silent, warning, exception
//	    case: lower             # natural, lower, upper
//	    oracle_nulls: natural   # natural, empty_string, to_string
//	    default_fetch_mode: assoc
//	    timeout: 10             # seconds
package config
