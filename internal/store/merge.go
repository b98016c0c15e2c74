package store

// Defaults applied when a book first enters the catalog without usable
// caption metadata. They apply on the insert path only: a later captionless
// event for the same row must not reset fields someone already curated.
const (
	DefaultTitle  = "Untitled"
	DefaultAuthor = "Unknown"
)

// merge computes the row an ingestion payload produces. With existing nil it
// prepares a fresh row with the insert-time defaults. Otherwise the
// structural fields always follow the feed, while the descriptive fields
// keep their stored value unless the payload carries a non-empty
// replacement. The cover URL override belongs to admins and is never
// written by ingestion.
func merge(existing, in *Book) *Book {
	if existing == nil {
		out := *in
		if out.Title == "" {
			out.Title = out.FileName
		}
		if out.Title == "" {
			out.Title = DefaultTitle
		}
		if out.Author == "" {
			out.Author = DefaultAuthor
		}
		return &out
	}

	out := *existing
	out.FileID = in.FileID
	out.FileUniqueID = in.FileUniqueID
	out.FileName = in.FileName
	out.MimeType = in.MimeType
	out.FileSize = in.FileSize
	out.Source = in.Source

	if in.Title != "" {
		out.Title = in.Title
	}
	if in.Author != "" {
		out.Author = in.Author
	}
	if in.Lang != "" {
		out.Lang = in.Lang
	}
	if in.Tags != "" {
		out.Tags = in.Tags
	}
	if in.Category != "" {
		out.Category = in.Category
	}
	if in.CoverFileID != "" {
		out.CoverFileID = in.CoverFileID
	}
	return &out
}
