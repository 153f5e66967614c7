// Package config provides configuration management for gtminspect.
//
// Configuration is layered, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. An optional YAML file, with ${VAR_NAME} environment substitution
//  3. Environment variables prefixed GTMINSPECT_, e.g. GTMINSPECT_SERVER_ADDR
//  4. Command-line flags bound by the CLI
//
// # Usage
//
//	cfg, err := config.Load("gtminspect.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// # Example YAML
//
//	log:
//	  level: info
//	  encoding: json
//	inspect:
//	  strict: false
//	  format: csv
//	  compression: none
//	  output: gtm_tags_export.csv
//	server:
//	  addr: ":8080"
//	storage:
//	  s3_region: ${AWS_REGION}
package config
