// Package config loads the application configuration.
//
// # Configuration Sources
//
// Sources are applied in order, later ones winning:
//
//	1. Default values
//	2. YAML file (COSTCMP_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Environment variables
//
// # Environment Variables
//
// Variables follow the section layout under the COSTCMP prefix:
//
//	COSTCMP_SERVER_PORT=8080
//	COSTCMP_DATA_DIR=/srv/costcompare/data
//	COSTCMP_DATA_SALARY_MONTHLY=true
//	COSTCMP_DATA_KEY_CASE=upper
//	COSTCMP_LOGGING_LEVEL=debug
//	COSTCMP_STORE_DB_PATH=/var/lib/costcompare/loads.db
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	salaries := cfg.Data.SalaryPath()
package config
