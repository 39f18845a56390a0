package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
	"github.com/noah-isme/sma-timetable-engine/pkg/export"
)

// Export formats supported by the timetable export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{"Class", "Day", "Slot", "Subject", "Teacher", "Room"}

var dayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

type exportNameReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

// ExportResult carries rendered bytes plus metadata for the HTTP layer.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the active timetable of a term as CSV or PDF.
type ExportService struct {
	terms     exportNameReader
	timetable timetableReader
	classes   classLister
	subjects  subjectLister
	teachers  teacherLister
	rooms     roomLister
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService wires the exporter.
func NewExportService(terms exportNameReader, timetable timetableReader, classes classLister, subjects subjectLister, teachers teacherLister, rooms roomLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		terms:     terms,
		timetable: timetable,
		classes:   classes,
		subjects:  subjects,
		teachers:  teachers,
		rooms:     rooms,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// Export renders the active timetable in the requested format.
func (s *ExportService) Export(ctx context.Context, termID, format string) (*ExportResult, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term id is required")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	entries, err := s.timetable.ListActiveByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active timetable for this term")
	}

	names, err := s.nameIndex(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reference data")
	}

	dataset := s.dataset(entries, names)
	title := fmt.Sprintf("Timetable %s (%s)", term.Name, term.AcademicYear)

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("timetable_%s.csv", termID),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	default:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("timetable_%s.pdf", termID),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}
}

type nameIndex struct {
	classes  map[string]string
	subjects map[string]string
	teachers map[string]string
	rooms    map[string]string
}

func (s *ExportService) nameIndex(ctx context.Context) (*nameIndex, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}

	idx := &nameIndex{
		classes:  make(map[string]string, len(classes)),
		subjects: make(map[string]string, len(subjects)),
		teachers: make(map[string]string, len(teachers)),
		rooms:    make(map[string]string, len(rooms)),
	}
	for _, c := range classes {
		idx.classes[c.ID] = c.Name
	}
	for _, sub := range subjects {
		idx.subjects[sub.ID] = sub.Name
	}
	for _, t := range teachers {
		idx.teachers[t.ID] = t.FullName
	}
	for _, r := range rooms {
		idx.rooms[r.ID] = r.Name
	}
	return idx, nil
}

func (s *ExportService) dataset(entries []models.TimetableEntry, names *nameIndex) export.Dataset {
	sorted := append([]models.TimetableEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.SlotIndex < b.SlotIndex
	})

	rows := make([]map[string]string, 0, len(sorted))
	for _, e := range sorted {
		room := ""
		if e.RoomID != nil {
			room = lookupName(names.rooms, *e.RoomID)
		}
		rows = append(rows, map[string]string{
			"Class":   lookupName(names.classes, e.ClassID),
			"Day":     dayName(e.DayOfWeek),
			"Slot":    strconv.Itoa(e.SlotIndex),
			"Subject": lookupName(names.subjects, e.SubjectID),
			"Teacher": lookupName(names.teachers, e.TeacherID),
			"Room":    room,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func lookupName(m map[string]string, id string) string {
	if name, ok := m[id]; ok {
		return name
	}
	return id
}

func dayName(day int) string {
	if name, ok := dayNames[day]; ok {
		return name
	}
	return strconv.Itoa(day)
}
