package config

import (
	"fmt"
	"os"
)

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

const Template = `# attestctl configuration
version = "3.0"
max_header_bytes = 1024
max_payload_bytes = 65535
max_record_bytes = 1048576
log_level = "info"
log_json = false

[wrapper]
vaa_version = 1
consistency_level = 1
emitter_chain = 26
`
