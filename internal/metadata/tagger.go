package metadata

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// Tag holds the fields written to a finished download. Deezer tracks
// arrive with no tags at all after decryption; yt-dlp output usually has
// tags that Apply then overwrites with the resolved metadata.
type Tag struct {
	Title       string
	Artist      string
	Album       string
	Year        int
	TrackNumber int
	ISRC        string
	ArtworkData []byte
	ArtworkMIME string
}

// Tagger writes tags into MP3 and FLAC files.
type Tagger struct {
	embedArtwork bool
	artworkSize  int
}

// NewTagger creates a tagger. artworkSize is the square dimension artwork
// is resized to before embedding.
func NewTagger(embedArtwork bool, artworkSize int) *Tagger {
	if artworkSize <= 0 {
		artworkSize = 600
	}
	return &Tagger{
		embedArtwork: embedArtwork,
		artworkSize:  artworkSize,
	}
}

// ArtworkSize returns the configured embed dimension.
func (t *Tagger) ArtworkSize() int {
	return t.artworkSize
}

// Apply writes the tag into the file, dispatching on extension.
func (t *Tagger) Apply(filePath string, tag *Tag) error {
	if tag == nil {
		return fmt.Errorf("tag cannot be nil")
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return t.applyMP3(filePath, tag)
	case ".flac":
		return t.applyFLAC(filePath, tag)
	default:
		return fmt.Errorf("unsupported file format: %s", filepath.Ext(filePath))
	}
}

func (t *Tagger) applyMP3(filePath string, tag *Tag) error {
	id3, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer id3.Close()

	id3.SetVersion(4)

	if tag.Title != "" {
		id3.SetTitle(tag.Title)
	}
	if tag.Artist != "" {
		id3.SetArtist(tag.Artist)
	}
	if tag.Album != "" {
		id3.SetAlbum(tag.Album)
	}
	if tag.Year > 0 {
		id3.SetYear(strconv.Itoa(tag.Year))
	}
	if tag.TrackNumber > 0 {
		id3.DeleteFrames(id3.CommonID("Track number/Position in set"))
		id3.AddTextFrame(id3.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(tag.TrackNumber))
	}
	if tag.ISRC != "" {
		id3.DeleteFrames(id3.CommonID("ISRC"))
		id3.AddTextFrame(id3.CommonID("ISRC"), id3v2.EncodingUTF8, tag.ISRC)
	}

	if t.embedArtwork && len(tag.ArtworkData) > 0 {
		mime := tag.ArtworkMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		id3.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mime,
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     tag.ArtworkData,
		})
	}

	if err := id3.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}

	return nil
}

func (t *Tagger) applyFLAC(filePath string, tag *Tag) error {
	f, err := flac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var cmtBlock *flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			cmtBlock = block
			break
		}
	}
	if cmtBlock == nil {
		cmtBlock = &flac.MetaDataBlock{Type: flac.VorbisComment}
		f.Meta = append(f.Meta, cmtBlock)
	}

	cmt, err := flacvorbis.ParseFromMetaDataBlock(*cmtBlock)
	if err != nil {
		cmt = flacvorbis.New()
	}

	if tag.Title != "" {
		cmt.Add("TITLE", tag.Title)
	}
	if tag.Artist != "" {
		cmt.Add("ARTIST", tag.Artist)
	}
	if tag.Album != "" {
		cmt.Add("ALBUM", tag.Album)
	}
	if tag.Year > 0 {
		cmt.Add("DATE", strconv.Itoa(tag.Year))
	}
	if tag.TrackNumber > 0 {
		cmt.Add("TRACKNUMBER", strconv.Itoa(tag.TrackNumber))
	}
	if tag.ISRC != "" {
		cmt.Add("ISRC", tag.ISRC)
	}

	res := cmt.Marshal()
	cmtBlock.Data = res.Data

	if t.embedArtwork && len(tag.ArtworkData) > 0 {
		hasPicture := false
		for _, block := range f.Meta {
			if block.Type == flac.Picture {
				hasPicture = true
				break
			}
		}
		if !hasPicture {
			f.Meta = append(f.Meta, &flac.MetaDataBlock{
				Type: flac.Picture,
				Data: flacPictureBlock(tag.ArtworkData, tag.ArtworkMIME),
			})
		}
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}

	return nil
}

// Read returns the tags currently present in an MP3 or FLAC file.
func (t *Tagger) Read(filePath string) (*Tag, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return t.readMP3(filePath)
	case ".flac":
		return t.readFLAC(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filepath.Ext(filePath))
	}
}

func (t *Tagger) readMP3(filePath string) (*Tag, error) {
	id3, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer id3.Close()

	tag := &Tag{
		Title:  id3.Title(),
		Artist: id3.Artist(),
		Album:  id3.Album(),
	}

	if yearStr := id3.Year(); yearStr != "" {
		if year, err := strconv.Atoi(yearStr); err == nil {
			tag.Year = year
		}
	}

	if frames := id3.GetFrames(id3.CommonID("Track number/Position in set")); len(frames) > 0 {
		if tf, ok := frames[0].(id3v2.TextFrame); ok {
			if n, err := strconv.Atoi(strings.Split(tf.Text, "/")[0]); err == nil {
				tag.TrackNumber = n
			}
		}
	}

	if frames := id3.GetFrames(id3.CommonID("ISRC")); len(frames) > 0 {
		if tf, ok := frames[0].(id3v2.TextFrame); ok {
			tag.ISRC = tf.Text
		}
	}

	return tag, nil
}

func (t *Tagger) readFLAC(filePath string) (*Tag, error) {
	f, err := flac.ParseFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	tag := &Tag{}

	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			continue
		}

		if v, err := cmt.Get("TITLE"); err == nil && len(v) > 0 {
			tag.Title = v[0]
		}
		if v, err := cmt.Get("ARTIST"); err == nil && len(v) > 0 {
			tag.Artist = v[0]
		}
		if v, err := cmt.Get("ALBUM"); err == nil && len(v) > 0 {
			tag.Album = v[0]
		}
		if v, err := cmt.Get("DATE"); err == nil && len(v) > 0 {
			if year, err := strconv.Atoi(v[0]); err == nil {
				tag.Year = year
			}
		}
		if v, err := cmt.Get("TRACKNUMBER"); err == nil && len(v) > 0 {
			if n, err := strconv.Atoi(v[0]); err == nil {
				tag.TrackNumber = n
			}
		}
		if v, err := cmt.Get("ISRC"); err == nil && len(v) > 0 {
			tag.ISRC = v[0]
		}
		break
	}

	return tag, nil
}

// flacPictureBlock builds a METADATA_BLOCK_PICTURE payload for a front
// cover. Width, height and depth are left zero for the decoder to fill.
func flacPictureBlock(imageData []byte, mimeType string) []byte {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	description := "Front Cover"

	size := 4 + 4 + len(mimeType) + 4 + len(description) + 4*4 + 4 + len(imageData)
	data := make([]byte, size)

	pos := 0
	writeUint32BE(data[pos:], 3) // front cover
	pos += 4

	writeUint32BE(data[pos:], uint32(len(mimeType)))
	pos += 4
	copy(data[pos:], mimeType)
	pos += len(mimeType)

	writeUint32BE(data[pos:], uint32(len(description)))
	pos += 4
	copy(data[pos:], description)
	pos += len(description)

	pos += 4 * 4 // width, height, depth, colors

	writeUint32BE(data[pos:], uint32(len(imageData)))
	pos += 4
	copy(data[pos:], imageData)

	return data
}

func writeUint32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
