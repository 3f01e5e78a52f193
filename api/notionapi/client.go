package notionapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"calendar-time-tracking/aggregate"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"
)

// ErrDisabled is returned when no Notion token was configured.
var ErrDisabled = errors.New("notion export is not configured")

type Client struct {
	Config Config
	Client *notionapi.Client
	Logger *zap.Logger
}

type Config struct {
	DBLink string
}

// Row is one period of one calendar as stored in the database.
type Row struct {
	Calendar    string
	Granularity aggregate.Granularity
	Summary     aggregate.PeriodSummary
}

func (r Row) Title() string {
	return fmt.Sprintf("%s %s", r.Calendar, r.Summary.Label)
}

var requiredProperties = map[string]notionapi.PropertyConfig{
	"Calendar": notionapi.RichTextPropertyConfig{
		Type: notionapi.PropertyConfigTypeRichText,
	},
	"Granularity": notionapi.RichTextPropertyConfig{
		Type: notionapi.PropertyConfigTypeRichText,
	},
	"Hours": notionapi.NumberPropertyConfig{
		Type: notionapi.PropertyConfigTypeNumber,
	},
	"Minutes": notionapi.NumberPropertyConfig{
		Type: notionapi.PropertyConfigTypeNumber,
	},
	"Start": notionapi.DatePropertyConfig{
		Type: notionapi.PropertyConfigTypeDate,
	},
}

func (c *Client) enabled() error {
	if c.Client == nil {
		return ErrDisabled
	}
	if c.Config.DBLink == "" {
		return fmt.Errorf("%w: database link is empty", ErrDisabled)
	}
	return nil
}

// EnsureDatabase checks that the database has the properties summaries are
// written to, adding the missing ones. It returns the name of the title property.
func (c *Client) EnsureDatabase(ctx context.Context) (string, error) {
	if err := c.enabled(); err != nil {
		return "", err
	}
	c.Logger.Info("ensuring database")
	id, err := getDBId(c.Config.DBLink)
	if err != nil {
		return "", err
	}
	db, err := c.Client.Database.Get(ctx, notionapi.DatabaseID(id))
	if err != nil {
		return "", fmt.Errorf("fetching DB with id %s: %w", id, err)
	}
	var title string
	for name, prop := range db.Properties {
		if prop.GetType() == notionapi.PropertyConfigTypeTitle {
			title = name
		}
	}
	if title == "" {
		return "", fmt.Errorf("database %s has no title property", id)
	}
	missing := missingProperties(db.Properties)
	if len(missing) == 0 {
		return title, nil
	}
	c.Logger.Info("adding database properties", zap.Int("count", len(missing)))
	_, err = c.Client.Database.Update(ctx, notionapi.DatabaseID(id), &notionapi.DatabaseUpdateRequest{
		Properties: missing,
	})
	if err != nil {
		return "", fmt.Errorf("update database: %w", err)
	}
	return title, nil
}

func missingProperties(existing notionapi.PropertyConfigs) notionapi.PropertyConfigs {
	missing := notionapi.PropertyConfigs{}
	for name, conf := range requiredProperties {
		if _, ok := existing[name]; !ok {
			missing[name] = conf
		}
	}
	return missing
}

// PutSummaries writes one page per row. Pages are created concurrently;
// failures are logged and reported together once all writes finished.
func (c *Client) PutSummaries(ctx context.Context, title string, rows []Row) error {
	if err := c.enabled(); err != nil {
		return err
	}
	c.Logger.Info("putting summaries", zap.Int("rows", len(rows)))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, row := range rows {
		wg.Add(1)
		go func(row Row) {
			defer wg.Done()
			if err := c.PutSummary(ctx, title, row); err != nil {
				c.Logger.Warn("put summary", zap.String("page", row.Title()), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(row)
	}
	wg.Wait()
	if failed > 0 {
		return fmt.Errorf("put summaries: %d of %d pages failed", failed, len(rows))
	}
	return nil
}

// PutSummary creates the page for a single row.
func (c *Client) PutSummary(ctx context.Context, title string, row Row) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("put summary: %w", err)
		}
	}()
	id, err := getDBId(c.Config.DBLink)
	if err != nil {
		return err
	}
	_, err = c.Client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       "database_id",
			DatabaseID: notionapi.DatabaseID(id),
		},
		Properties: pageProperties(title, row),
	})
	return err
}

func pageProperties(title string, row Row) notionapi.Properties {
	start := notionapi.Date(row.Summary.BucketStart)
	return notionapi.Properties{
		title: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Text: notionapi.Text{Content: row.Title()}},
			},
		},
		"Calendar":    richText(row.Calendar),
		"Granularity": richText(row.Granularity.String()),
		"Hours": notionapi.NumberProperty{
			Number: row.Summary.TotalHours,
		},
		"Minutes": notionapi.NumberProperty{
			Number: row.Summary.TotalMinutes,
		},
		"Start": notionapi.DateProperty{
			Date: notionapi.DateObject{
				Start: &start,
			},
		},
	}
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type:      notionapi.ObjectTypeText,
				Text:      notionapi.Text{Content: s},
				PlainText: s,
			},
		},
	}
}

const notionURLPrefix = "https://www.notion.so/"

// getDBId extracts the database id from a link like
// https://www.notion.so/<workspace>/<id>?v=<view>.
func getDBId(link string) (string, error) {
	if !strings.HasPrefix(link, notionURLPrefix) {
		return "", fmt.Errorf("not a notion link: %q", link)
	}
	path := strings.Split(link[len(notionURLPrefix):], "?v")[0]
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.LastIndex(path, "-"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "", fmt.Errorf("no database id in %q", link)
	}
	return path, nil
}
