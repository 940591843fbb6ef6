package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// dsnSummary describes a database target without its credentials.
type dsnSummary struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (s dsnSummary) String() string {
	if s.Type == "sqlite" {
		return "sqlite " + s.Path
	}
	return fmt.Sprintf("postgres %s@%s:%d/%s (sslmode=%s)", s.User, s.Host, s.Port, s.Name, s.SSLMode)
}

// describeDSN summarizes dsn for logging.
func describeDSN(dsn string) (dsnSummary, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return dsnSummary{}, fmt.Errorf("empty dsn")
	}

	if strings.HasPrefix(strings.ToLower(trimmed), "file:") {
		pathPart, _, _ := strings.Cut(trimmed[len("file:"):], "?")
		return dsnSummary{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return dsnSummary{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
	default:
		return dsnSummary{}, fmt.Errorf("unsupported dsn scheme %q", u.Scheme)
	}

	summary := dsnSummary{
		Type:    "postgres",
		Host:    u.Hostname(),
		Port:    5432,
		Name:    strings.TrimPrefix(u.Path, "/"),
		SSLMode: u.Query().Get("sslmode"),
	}
	if rawPort := u.Port(); rawPort != "" {
		port, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return dsnSummary{}, fmt.Errorf("parse port: %w", errPort)
		}
		summary.Port = port
	}
	if u.User != nil {
		summary.User = u.User.Username()
		_, summary.PasswordSet = u.User.Password()
	}
	if summary.SSLMode == "" {
		summary.SSLMode = "disable"
	}
	return summary, nil
}
