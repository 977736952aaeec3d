package config

import (
	"encoding/json"
	"os"

	"github.com/vmaksimov/homesense/internal/flagx"
	"github.com/vmaksimov/homesense/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "10s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. Every field is a pointer so that a partial file
// overlays only the keys it actually contains; after unmarshalling, the
// present fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP  *string         `json:"endpoint_addr_http"`
	DatabaseDSN       *string         `json:"database_dsn"`
	SecretKey         *string         `json:"secret_key"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	QueryLimitDefault *int            `json:"query_limit_default"`
	QueryLimitMax     *int            `json:"query_limit_max"`
	S3RootUser        *string         `json:"s3_root_user"`
	S3RootPassword    *string         `json:"s3_root_password"`
	S3Bucket          *string         `json:"s3_bucket"`
	S3Region          *string         `json:"s3_region"`
	S3BaseEndpoint    *string         `json:"s3_base_endpoint"`
	ExportURLValidity *timex.Duration `json:"export_url_validity"`
	AMQPURL           *string         `json:"amqp_url"`
	AMQPQueue         *string         `json:"amqp_queue"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics: a broken explicit config
// file is a startup error, not something to limp past.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != nil {
		config.EndpointAddrHTTP = *c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.QueryLimitDefault != nil {
		config.QueryLimitDefault = *c.QueryLimitDefault
	}
	if c.QueryLimitMax != nil {
		config.QueryLimitMax = *c.QueryLimitMax
	}
	if c.S3RootUser != nil {
		config.S3RootUser = *c.S3RootUser
	}
	if c.S3RootPassword != nil {
		config.S3RootPassword = *c.S3RootPassword
	}
	if c.S3Bucket != nil {
		config.S3Bucket = *c.S3Bucket
	}
	if c.S3Region != nil {
		config.S3Region = *c.S3Region
	}
	if c.S3BaseEndpoint != nil {
		config.S3BaseEndpoint = *c.S3BaseEndpoint
	}
	if c.ExportURLValidity != nil {
		config.ExportURLValidity = c.ExportURLValidity.Duration
	}
	if c.AMQPURL != nil {
		config.AMQPURL = *c.AMQPURL
	}
	if c.AMQPQueue != nil {
		config.AMQPQueue = *c.AMQPQueue
	}
}
