// Package model defines the resources exchanged with the release backend.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/cameronsjo/helmdeck/internal/values"
)

// Release is a deployed chart instance.
type Release struct {
	Name         string    `json:"name"`
	Namespace    string    `json:"namespace"`
	Chart        string    `json:"chart"`
	ChartVersion string    `json:"chartVersion"`
	AppVersion   string    `json:"appVersion"`
	Status       string    `json:"status"`
	Updated      time.Time `json:"updated"`
	Revision     int       `json:"revision"`

	// HasRegistry is true when a registry mapping exists for the release.
	// Upgrades and values updates need one.
	HasRegistry bool `json:"hasRegistry"`
}

// ID returns the "namespace/name" identifier of the release.
func (r Release) ID() string {
	return r.Namespace + "/" + r.Name
}

// ReleaseFilter narrows a release listing. Zero values match everything.
type ReleaseFilter struct {
	Namespace   string
	HasRegistry *bool
}

// ChartVersion is a version of a chart available in the release's registry.
type ChartVersion struct {
	Version     string `json:"version"`
	AppVersion  string `json:"appVersion"`
	Description string `json:"description"`
}

// ReleaseHistory is one revision of a release.
type ReleaseHistory struct {
	Revision    int       `json:"revision"`
	Updated     time.Time `json:"updated"`
	Status      string    `json:"status"`
	Chart       string    `json:"chart"`
	AppVersion  string    `json:"appVersion"`
	Description string    `json:"description"`
}

// RegistryMapping associates a release with the registry its chart is
// pulled from.
type RegistryMapping struct {
	Namespace   string `json:"namespace"`
	ReleaseName string `json:"releaseName"`
	ChartName   string `json:"chartName"`
	Registry    string `json:"registry"`
}

// Repository is a configured chart repository.
type Repository struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// VersionUpgradeRequest moves a release to another chart version,
// optionally replacing its values.
type VersionUpgradeRequest struct {
	ChartVersion string          `json:"chartVersion"`
	Values       *values.Mapping `json:"values,omitempty"`
}

// ValuesUpdateRequest replaces a release's values.
type ValuesUpdateRequest struct {
	Values *values.Mapping `json:"values"`
}

// RollbackRequest returns a release to an earlier revision.
type RollbackRequest struct {
	Revision int `json:"revision"`
}

// SetRegistryRequest creates or replaces a registry mapping.
type SetRegistryRequest struct {
	Registry string `json:"registry"`
}

// AddRepositoryRequest registers a chart repository.
type AddRepositoryRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ParseReleaseID splits a "namespace/name" identifier.
func ParseReleaseID(id string) (namespace, name string, err error) {
	namespace, name, ok := strings.Cut(id, "/")
	if !ok || namespace == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid release %q: expected namespace/name", id)
	}
	return namespace, name, nil
}
