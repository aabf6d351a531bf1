package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"clip-trivia-service/internal/domain"
)

// MediaLayout turns a clip name into video and poster references.
type MediaLayout struct {
	VideoPrefix  string
	VideoExt     string
	PosterPrefix string
	PosterExt    string
}

func DefaultMediaLayout() MediaLayout {
	return MediaLayout{
		VideoPrefix:  "/movies/",
		VideoExt:     ".mp4",
		PosterPrefix: "/posters/",
		PosterExt:    ".jpg",
	}
}

// Row is one catalog line: level,question_number,clip,correct_answer.
type Row struct {
	Level         int
	Number        int
	Clip          string
	CorrectAnswer int
}

// CSVLoader serves levels parsed once from a catalog CSV file.
type CSVLoader struct {
	rows   []Row
	levels map[int]domain.Level
}

// NewCSVLoader reads and validates the catalog at path.
func NewCSVLoader(path string, layout MediaLayout) (*CSVLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ParseCSV(f, layout)
}

// ParseCSV reads catalog rows from r.
func ParseCSV(r io.Reader, layout MediaLayout) (*CSVLoader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	var rows []Row
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	levels, err := BuildLevels(rows, layout)
	if err != nil {
		return nil, err
	}
	return &CSVLoader{rows: rows, levels: levels}, nil
}

func (l *CSVLoader) LoadLevel(_ context.Context, level int) (domain.Level, error) {
	if questions, ok := l.levels[level]; ok {
		return questions, nil
	}
	return domain.Level{}, fmt.Errorf("level %d: %w", level, domain.ErrLevelNotFound)
}

// Rows returns the parsed catalog rows in file order.
func (l *CSVLoader) Rows() []Row {
	return append([]Row(nil), l.rows...)
}

// BuildLevels groups rows into levels. Question numbers must run 1..N per level.
func BuildLevels(rows []Row, layout MediaLayout) (map[int]domain.Level, error) {
	byLevel := make(map[int][]Row)
	for _, row := range rows {
		byLevel[row.Level] = append(byLevel[row.Level], row)
	}

	levels := make(map[int]domain.Level, len(byLevel))
	for number, levelRows := range byLevel {
		sort.Slice(levelRows, func(i, j int) bool { return levelRows[i].Number < levelRows[j].Number })
		questions := make([]domain.Question, 0, len(levelRows))
		for i, row := range levelRows {
			if row.Number != i+1 {
				return nil, fmt.Errorf("level %d: expected question %d, got %d: %w", number, i+1, row.Number, domain.ErrInvalidCatalog)
			}
			questions = append(questions, domain.Question{
				Number:        row.Number,
				VideoRef:      layout.VideoPrefix + row.Clip + layout.VideoExt,
				PosterRef:     layout.PosterPrefix + row.Clip + layout.PosterExt,
				CorrectAnswer: row.CorrectAnswer,
			})
		}
		levels[number] = domain.Level{Number: number, Questions: questions}
	}
	return levels, nil
}

func parseRow(record []string) (Row, error) {
	var row Row
	var err error
	if row.Level, err = strconv.Atoi(strings.TrimSpace(record[0])); err != nil {
		return Row{}, fmt.Errorf("level %q: %w", record[0], domain.ErrInvalidCatalog)
	}
	if row.Number, err = strconv.Atoi(strings.TrimSpace(record[1])); err != nil {
		return Row{}, fmt.Errorf("question number %q: %w", record[1], domain.ErrInvalidCatalog)
	}
	row.Clip = strings.TrimSpace(record[2])
	if row.Clip == "" {
		return Row{}, fmt.Errorf("empty clip name: %w", domain.ErrInvalidCatalog)
	}
	if row.CorrectAnswer, err = strconv.Atoi(strings.TrimSpace(record[3])); err != nil {
		return Row{}, fmt.Errorf("correct answer %q: %w", record[3], domain.ErrInvalidCatalog)
	}
	return row, nil
}
