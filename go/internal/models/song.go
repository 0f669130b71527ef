package models

// Song is the preview served for a round. It has no identity beyond TrackID.
type Song struct {
	TrackID    int64  `json:"track_id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	ArtworkURL string `json:"artwork_url"`
	PreviewURL string `json:"preview_url"`
}

// Playable reports whether the song can be handed to the audio controller.
func (s Song) Playable() bool {
	return s.TrackID != 0 && s.PreviewURL != ""
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	TrackID    int64  `json:"track_id"`
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	ArtworkURL string `json:"artwork_url"`
}
