package spotify

import "encoding/json"

type artistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type track struct {
	Name       string      `json:"name"`
	DurationMS float64     `json:"duration_ms"`
	Artists    []artistRef `json:"artists"`
	Album      struct {
		Name string `json:"name"`
	} `json:"album"`
}

// Items are kept raw so a malformed entry only drops itself.
type searchTracksResponse struct {
	Tracks struct {
		Items []json.RawMessage `json:"items"`
		Next  *string           `json:"next"`
		Total int               `json:"total"`
	} `json:"tracks"`
}

type searchAlbumsResponse struct {
	Albums struct {
		Items []struct {
			Name        string `json:"name"`
			TotalTracks *int   `json:"total_tracks"`
		} `json:"items"`
	} `json:"albums"`
}

type artistResponse struct {
	Genres []string `json:"genres"`
}
