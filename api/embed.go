// Package api holds the OpenAPI description of the HTTP service.
package api

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
