package models

// Song is a playable track hosted on the media store.
type Song struct {
	Base      `bson:",inline"`
	Title     string  `json:"title"              bson:"title"`
	Artist    string  `json:"artist"             bson:"artist"`
	ArtistID  string  `json:"artistId,omitempty" bson:"artistId,omitempty"`
	AlbumID   *string `json:"albumId"            bson:"albumId"`
	Genre     string  `json:"genre"              bson:"genre"`
	ImageURL  string  `json:"imageUrl"           bson:"imageUrl"`
	AudioURL  string  `json:"audioUrl"           bson:"audioUrl"`
	Duration  int     `json:"duration"           bson:"duration"`
	PlayCount int64   `json:"playCount"          bson:"playCount"`
}

type Album struct {
	Base        `bson:",inline"`
	Title       string   `json:"title"        bson:"title"`
	Artist      string   `json:"artist"       bson:"artist"`
	ImageURL    string   `json:"imageUrl"     bson:"imageUrl"`
	ReleaseYear int      `json:"releaseYear"  bson:"releaseYear"`
	SongIDs     []string `json:"songIds"      bson:"songIds"`
}

// GenreCount is the aggregate row for /genres.
type GenreCount struct {
	Genre string `json:"genre" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}
