package route

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v2"
)

type routeFile struct {
	Routes []Rule `yaml:"routes"`
}

// LoadFile reads rules from a YAML document of the form
//
//	routes:
//	  - id: accounts
//	    path: /digibank/accounts/**
//	    rewrite: /${segment}
//	    target: ACCOUNTS
//	    responseHeaders:
//	      - name: X-Response-Time
//	        value: ${now}
func LoadFile(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}

	var file routeFile
	if err := yaml.UnmarshalStrict(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route file %s: %w", path, err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("route file %s declares no routes", path)
	}
	return file.Routes, nil
}
