package vo

import "fmt"

// MediaType 媒体类型
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
)

func (t MediaType) String() string { return string(t) }

// MediaItem is what the media catalog reports for one rating key.
type MediaItem struct {
	RatingKey        string
	Title            string
	GrandparentTitle string
	Year             *int
	Type             MediaType
	ParentIndex      *int // season
	Index            *int // episode
	FilePath         string
}

// SeasonEpisode returns the SxxExx label for episodes carrying both indexes.
func (m MediaItem) SeasonEpisode() *string {
	if m.Type != MediaTypeEpisode || m.ParentIndex == nil || m.Index == nil {
		return nil
	}
	label := fmt.Sprintf("S%02dE%02d", *m.ParentIndex, *m.Index)
	return &label
}

// DisplayTitle is "Show – Episode" for episodes and "Title (Year)" for movies.
func (m MediaItem) DisplayTitle() string {
	if m.GrandparentTitle != "" {
		return m.GrandparentTitle + " – " + m.Title
	}
	if m.Year != nil {
		return fmt.Sprintf("%s (%d)", m.Title, *m.Year)
	}
	return m.Title
}

// DefaultClipTitle is used when the request carries no title.
func (m MediaItem) DefaultClipTitle() string {
	if m.GrandparentTitle != "" {
		return m.GrandparentTitle + " – " + m.Title
	}
	return m.Title
}
