/*
Package config loads storeflow settings from YAML or JSON files.

# File Format

	dispatcher:
	  max_dependency_depth: 64   # > 0, default 100
	  log_level: info            # debug|info|warn|error
	  log_format: json           # json|text
	  metrics: true
	  tracing: false
	snapshot:
	  driver: sqlite             # memory|sqlite, empty disables snapshots
	  path: ./state.db

Keys left out keep the values from Default. Unknown keys are an error.

# Usage

	settings, err := config.FromFile("storeflow.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	opts, err := settings.Options(os.Stderr)
	if err != nil {
	    log.Fatal(err)
	}
	d := storeflow.New(opts...)

	sink, err := settings.OpenSink()

Validate reports every problem at once, joined with errors.Join.
*/
package config
