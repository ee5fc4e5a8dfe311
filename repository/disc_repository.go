package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gocddb/model"
)

// SearchHit is one disc matching a disc id.
type SearchHit struct {
	Category string
	DiscID   string
	Artist   string
	Title    string
}

// DTitle returns the "ARTIST / TITLE" form used in query replies.
func (h SearchHit) DTitle() string {
	return h.Artist + " / " + h.Title
}

// DiscRepository 光盘数据访问接口
type DiscRepository interface {
	FindByDiscID(ctx context.Context, discID string) ([]SearchHit, error)
	// FindDisc returns nil, nil when the disc does not exist.
	FindDisc(ctx context.Context, category, discID string) (*model.Disc, error)
	Categories(ctx context.Context) ([]string, error)
	CountByCategory(ctx context.Context) ([]model.CategoryCount, error)
	Save(ctx context.Context, disc model.Disc) (uint, error)
	Exists(ctx context.Context, category, discID string) (bool, error)
}

// gormDiscRepository GORM 实现
type gormDiscRepository struct {
	db *gorm.DB
}

// NewGormDiscRepository 创建 GORM 光盘仓库
func NewGormDiscRepository(db *gorm.DB) DiscRepository {
	return &gormDiscRepository{db: db}
}

type discView struct {
	ID           uint
	DiscID       string `gorm:"column:discid"`
	Category     string
	Artist       string
	Title        string
	Genre        string
	Year         int
	Length       int
	Revision     int
	ProcessedBy  string
	SubmittedVia string
	ExtraData    string
	PlayOrder    string `gorm:"column:playorder"`
}

type trackView struct {
	Num       int
	Artist    string
	Title     string
	Offset    int `gorm:"column:toffset"`
	ExtraData string
	Length    int
}

// FindByDiscID lists every disc with the given id across categories.
func (r *gormDiscRepository) FindByDiscID(ctx context.Context, discID string) ([]SearchHit, error) {
	var hits []SearchHit
	err := r.db.WithContext(ctx).
		Table("disc").
		Select("category.name AS category, disc.discid AS disc_id, COALESCE(artist.name, '') AS artist, disc.title AS title").
		Joins("JOIN category ON category.id = disc.category_id").
		Joins("LEFT JOIN artist ON artist.id = disc.artist_id").
		Where("disc.discid = ?", discID).
		Order("category.name").
		Scan(&hits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query disc id %s: %w", discID, err)
	}
	return hits, nil
}

// FindDisc loads a disc and its tracks.
func (r *gormDiscRepository) FindDisc(ctx context.Context, category, discID string) (*model.Disc, error) {
	var view discView
	res := r.db.WithContext(ctx).
		Table("disc").
		Select("disc.id, disc.discid, category.name AS category, COALESCE(artist.name, '') AS artist, "+
			"disc.title, COALESCE(genre.name, '') AS genre, disc.year, disc.length, disc.revision, "+
			"disc.processed_by, disc.submitted_via, disc.extra_data, disc.playorder").
		Joins("JOIN category ON category.id = disc.category_id").
		Joins("LEFT JOIN artist ON artist.id = disc.artist_id").
		Joins("LEFT JOIN genre ON genre.id = disc.genre_id").
		Where("category.name = ? AND disc.discid = ?", category, discID).
		Limit(1).
		Scan(&view)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to read disc %s/%s: %w", category, discID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var tracks []trackView
	err := r.db.WithContext(ctx).
		Table("track").
		Select("track.num, COALESCE(artist.name, '') AS artist, track.title, track.toffset, track.extra_data, track.length").
		Joins("LEFT JOIN artist ON artist.id = track.artist_id").
		Where("track.disc_id = ?", view.ID).
		Order("track.num ASC").
		Scan(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read tracks of %s/%s: %w", category, discID, err)
	}

	disc := &model.Disc{
		DiscID:       model.NormalizeDiscID(view.DiscID),
		Artist:       view.Artist,
		Title:        view.Title,
		Category:     view.Category,
		Genre:        view.Genre,
		Year:         view.Year,
		Length:       view.Length,
		Revision:     view.Revision,
		PlayOrder:    view.PlayOrder,
		ExtraData:    view.ExtraData,
		SubmittedVia: view.SubmittedVia,
		ProcessedBy:  view.ProcessedBy,
		Tracks:       make([]model.Track, 0, len(tracks)),
	}
	for _, t := range tracks {
		disc.Tracks = append(disc.Tracks, model.Track{
			Title:     t.Title,
			Artist:    t.Artist,
			Offset:    t.Offset,
			ExtraData: t.ExtraData,
			Length:    t.Length,
		})
	}
	disc.DeriveTrackLengths()
	return disc, nil
}

// Categories lists category names in order.
func (r *gormDiscRepository) Categories(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.CategoryRow{}).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return names, nil
}

// CountByCategory counts discs per category; empty categories count zero.
func (r *gormDiscRepository) CountByCategory(ctx context.Context) ([]model.CategoryCount, error) {
	var counts []model.CategoryCount
	err := r.db.WithContext(ctx).
		Table("category").
		Select("category.name AS category, COUNT(disc.id) AS count").
		Joins("LEFT JOIN disc ON disc.category_id = category.id").
		Group("category.name").
		Order("category.name").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count discs: %w", err)
	}
	return counts, nil
}

// Exists reports whether a disc is already stored.
func (r *gormDiscRepository) Exists(ctx context.Context, category, discID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("disc").
		Joins("JOIN category ON category.id = disc.category_id").
		Where("category.name = ? AND disc.discid = ?", category, discID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check disc %s/%s: %w", category, discID, err)
	}
	return count > 0, nil
}

// Save stores disc under disc.Category, creating artist, genre and category
// rows on demand. It returns the new disc row id.
func (r *gormDiscRepository) Save(ctx context.Context, disc model.Disc) (uint, error) {
	var discRowID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category := model.CategoryRow{Name: truncate(disc.Category, 32)}
		if err := tx.Where("name = ?", category.Name).FirstOrCreate(&category).Error; err != nil {
			return fmt.Errorf("category: %w", err)
		}
		artistID, err := artistRowID(tx, disc.Artist)
		if err != nil {
			return err
		}
		var genreID uint
		if disc.Genre != "" {
			genre := model.GenreRow{Name: truncate(disc.Genre, 64)}
			if err := tx.Where("name = ?", genre.Name).FirstOrCreate(&genre).Error; err != nil {
				return fmt.Errorf("genre: %w", err)
			}
			genreID = genre.ID
		}

		row := model.DiscRow{
			DiscID:       truncate(model.NormalizeDiscID(disc.DiscID), 8),
			CategoryID:   category.ID,
			ArtistID:     artistID,
			Title:        truncate(disc.Title, 255),
			Year:         disc.Year,
			GenreID:      genreID,
			Length:       disc.Length,
			Revision:     disc.Revision,
			ProcessedBy:  truncate(disc.ProcessedBy, 255),
			SubmittedVia: truncate(disc.SubmittedVia, 255),
			ExtraData:    disc.ExtraData,
			PlayOrder:    truncate(disc.PlayOrder, 255),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("disc: %w", err)
		}

		for i, t := range disc.Tracks {
			trackArtistID := artistID
			if t.Artist != "" && t.Artist != disc.Artist {
				if trackArtistID, err = artistRowID(tx, t.Artist); err != nil {
					return err
				}
			}
			track := model.TrackRow{
				DiscID:    row.ID,
				Num:       i + 1,
				ArtistID:  trackArtistID,
				Title:     truncate(t.Title, 255),
				Offset:    t.Offset,
				ExtraData: t.ExtraData,
				Length:    t.Length,
			}
			if err := tx.Create(&track).Error; err != nil {
				return fmt.Errorf("track %d: %w", i, err)
			}
		}
		discRowID = row.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save disc %s/%s: %w", disc.Category, disc.DiscID, err)
	}
	return discRowID, nil
}

func artistRowID(tx *gorm.DB, name string) (uint, error) {
	artist := model.ArtistRow{Name: truncate(name, 255)}
	if err := tx.Where("name = ?", artist.Name).FirstOrCreate(&artist).Error; err != nil {
		return 0, fmt.Errorf("artist: %w", err)
	}
	return artist.ID, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

