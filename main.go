package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"sheetlab/internal/app"
	"sheetlab/internal/config"
	"sheetlab/internal/lesson"
	"sheetlab/internal/logging"
	"sheetlab/internal/progress"
	"sheetlab/internal/repl"
	"sheetlab/internal/storage"
	"sheetlab/internal/workbook"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", filepath.Join(config.Dir(), "config.yaml"), "settings file")
	user := flag.String("user", "", "user id (default: from settings, or a new random id)")
	lessonID := flag.String("lesson", "", "lesson to open")
	lessonsFile := flag.String("lessons", "", "lesson catalog file (default: built-in lessons)")
	logFile := flag.String("log", "", "log file")
	useREPL := flag.Bool("repl", false, "use the line-oriented formula shell")
	report := flag.Bool("report", false, "print everyone's progress and exit")
	openFile := flag.String("open", "", "open a .csv, .sheet or .xlsx file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load settings: %v\n", err)
		return 2
	}
	if *user != "" {
		cfg.UserID = *user
	}
	if *lessonsFile != "" {
		cfg.LessonsFile = *lessonsFile
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	closer, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot set up logging: %v\n", err)
		return 2
	}
	defer closer.Close()

	lessons, err := lesson.Catalog()
	if cfg.LessonsFile != "" {
		lessons, err = lesson.LoadFile(cfg.LessonsFile)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load lessons: %v\n", err)
		return 1
	}

	var store progress.Store
	if cfg.ProgressFile != "" {
		store = progress.FileStore{Path: cfg.ProgressFile}
	}
	tracker, err := progress.NewTracker(store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load progress: %v\n", err)
		return 1
	}

	if *report {
		if err := progress.Report(os.Stdout, tracker.Sessions(), lessons); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		return 0
	}

	if cfg.UserID == "" {
		cfg.UserID = progress.GenerateUserID()
	}
	log.Info().Str("user", cfg.UserID).Int("lessons", len(lessons)).Msg("starting")

	wb := workbook.New(workbook.Options{
		Cols:    cfg.Columns,
		Rows:    cfg.Rows,
		Mode:    cfg.Mode(),
		User:    cfg.UserID,
		Lessons: lessons,
		Tracker: tracker,
	})
	if err := start(wb, *openFile, *lessonID); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if *useREPL {
		fmt.Printf("user id %s\n", cfg.UserID)
		if err := repl.New(wb, os.Stdout).Run(filepath.Join(config.Dir(), "history")); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		return 0
	}
	return runTUI(wb, cfg)
}

// start opens the file or lesson named on the command line, or the first
// lesson of the catalog.
func start(wb *workbook.Workbook, file, id string) error {
	if file != "" {
		doc, err := storage.Open(file)
		if err != nil {
			return err
		}
		return wb.Load(doc)
	}
	if id == "" {
		if len(wb.Lessons()) == 0 {
			return nil
		}
		id = wb.Lessons()[0].ID
	}
	return wb.Open(id)
}

func runTUI(wb *workbook.Workbook, cfg config.Config) int {
	a := app.NewApp(wb, cfg.ColumnWidth)

	s, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create screen: %v\n", err)
		return 1
	}
	if err := s.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot init screen: %v\n", err)
		return 1
	}
	defer s.Fini()

	s.EnableMouse()
	s.Clear()

	app.LoginScreen(s, cfg.UserID)

	for !a.Quit {
		a.EnsureCursorVisible(s)
		a.Draw(s)
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			a.HandleKeyEvent(s, ev)
		case *tcell.EventResize:
			s.Sync()
		}
	}
	log.Info().Str("user", cfg.UserID).Msg("bye")
	return 0
}
