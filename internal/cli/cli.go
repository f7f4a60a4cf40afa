// Package cli implements the mdcanvas command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mdcanvas/pkg/buildinfo"
	"github.com/matzehuels/mdcanvas/pkg/cache"
	"github.com/matzehuels/mdcanvas/pkg/docstore"
	"github.com/matzehuels/mdcanvas/pkg/explorer"
	"github.com/matzehuels/mdcanvas/pkg/session"
	"github.com/matzehuels/mdcanvas/pkg/settings"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mdcanvas"

	// Environment overrides for the shared backends.
	envRedisAddr = "MDCANVAS_REDIS_ADDR"
	envMongoURI  = "MDCANVAS_MONGO_URI"

	mongoDatabase   = "mdcanvas"
	mongoCollection = "documents"

	// documentTTL bounds how long a cached document may lag the store.
	documentTTL = 10 * time.Minute
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// status receives transient output such as the scan spinner.
	status io.Writer

	docsDir string
	noCache bool
	verbose bool
}

// New creates a new CLI instance whose logger and status line write to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), status: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "mdcanvas edits diagram documents whose nodes render markdown",
		Long:         `mdcanvas manages diagram documents. Nodes whose text uses markdown are converted to rich-content nodes without losing their connections, and folder explorer nodes mirror directories on disk.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&c.docsDir, "dir", "", "document directory (default $XDG_DATA_HOME/mdcanvas/documents)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the document and scan caches")

	root.AddCommand(c.newCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.classifyCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.refreshCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.settingsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	c.registerCompletions(root)

	return root
}

// =============================================================================
// Backend Factories
// =============================================================================

// newCache returns the shared Redis cache when configured, the file cache
// otherwise, and a null cache when caching is disabled or unavailable.
func (c *CLI) newCache(ctx context.Context) cache.Cache {
	if c.noCache {
		return cache.NewNullCache()
	}
	if addr := os.Getenv(envRedisAddr); addr != "" {
		rc, err := cache.NewRedisCache(ctx, addr)
		if err == nil {
			return cache.NewInstrumented(rc)
		}
		c.Logger.Warn("redis unavailable, using file cache", "addr", addr, "err", err)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable", "dir", dir, "err", err)
		return cache.NewNullCache()
	}
	return cache.NewInstrumented(fc)
}

// newDocStore returns MongoDB when configured, local files otherwise,
// behind a read-through cache.
func (c *CLI) newDocStore(ctx context.Context, ch cache.Cache) (docstore.Store, error) {
	var store docstore.Store
	if uri := os.Getenv(envMongoURI); uri != "" {
		ms, err := docstore.NewMongoStore(ctx, uri, mongoDatabase, mongoCollection)
		if err != nil {
			return nil, err
		}
		store = ms
	} else {
		fs, err := docstore.NewFileStore(c.docsDir)
		if err != nil {
			return nil, err
		}
		store = fs
	}
	if c.noCache {
		return store, nil
	}
	return docstore.NewCached(store, ch, nil, documentTTL, c.Logger), nil
}

// newPreferences returns Redis-backed preferences when configured and the
// TOML settings file otherwise.
func (c *CLI) newPreferences(ctx context.Context) *settings.Preferences {
	if addr := os.Getenv(envRedisAddr); addr != "" {
		rs, err := settings.NewRedisStore(ctx, addr, appName)
		if err == nil {
			return settings.New(rs)
		}
		c.Logger.Warn("redis unavailable, using settings file", "addr", addr, "err", err)
	}
	return settings.New(settings.NewFileStore(settings.DefaultPath()))
}

// env is everything a command needs to work on a document.
type env struct {
	sess  *session.Session
	docs  docstore.Store
	prefs *settings.Preferences
	cache cache.Cache
	// file is set when the document was opened from a path rather than by
	// name.
	file string
}

// open builds a session and loads doc into it. doc is a document name, or
// a file path when it contains a separator or ends in ".json". An empty doc
// leaves the session with a new, unnamed document.
func (c *CLI) open(ctx context.Context, doc string, scanTTL time.Duration) (*env, error) {
	ch := c.newCache(ctx)
	docs, err := c.newDocStore(ctx, ch)
	if err != nil {
		ch.Close()
		return nil, err
	}
	prefs := c.newPreferences(ctx)

	var fs explorer.Filesystem = explorer.NewLocalFS()
	if scanTTL > 0 && !c.noCache {
		fs = explorer.NewCachedFS(fs, ch, nil, scanTTL, c.Logger)
	}
	e := &env{
		sess: session.New(session.Options{
			Logger: c.Logger,
			Prefs:  prefs,
			FS:     fs,
			Docs:   docs,
		}),
		docs:  docs,
		prefs: prefs,
		cache: ch,
	}

	switch {
	case doc == "":
	case isFilePath(doc):
		e.file = doc
		if _, err := e.sess.LoadFile(doc); err != nil {
			e.close()
			return nil, err
		}
	default:
		if _, err := e.sess.Load(ctx, doc); err != nil {
			e.close()
			return nil, err
		}
	}
	return e, nil
}

// save writes the document back to where it came from.
func (e *env) save(ctx context.Context) error {
	if e.file != "" {
		return e.sess.SaveFile(e.file)
	}
	return e.sess.Save(ctx)
}

// saveIfDirty saves and reports whether anything was written.
func (e *env) saveIfDirty(ctx context.Context) (bool, error) {
	if !e.sess.Dirty() {
		return false, nil
	}
	return true, e.save(ctx)
}

func (e *env) close() {
	e.sess.Close()
	e.docs.Close()
	e.prefs.Store().Close()
	// A cached document store closes its cache.
	if _, ok := e.docs.(*docstore.Cached); !ok {
		e.cache.Close()
	}
}

func isFilePath(doc string) bool {
	return strings.ContainsRune(doc, filepath.Separator) || strings.HasSuffix(doc, ".json")
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/mdcanvas/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
