package types

// JSONMap is a free-form string map stored as jsonb.
type JSONMap map[string]string
