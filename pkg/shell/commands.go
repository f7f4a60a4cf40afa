package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/explorer"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
	"github.com/matzehuels/mdcanvas/pkg/settings"
)

// Built-in command names.
const (
	CmdConvertNode     = "convert-node"
	CmdToggleCollapse  = "toggle-collapse"
	CmdSetText         = "set-text"
	CmdAddLinkedFolder = "add-linked-folder"
	CmdAddStaticFolder = "add-static-folder"
	CmdSelectFolder    = "select-folder"
	CmdRefreshFolder   = "refresh-folder"
	CmdOpenFile        = "open-file"
	CmdToggleMarkdown  = "toggle-markdown"
	CmdToggleHidden    = "toggle-hidden-files"
	CmdResetSettings   = "reset-settings"
	CmdSave            = "save"
)

func (d *Dispatcher) registerBuiltins() {
	builtins := map[string]Handler{
		CmdConvertNode:     d.convertNode,
		CmdToggleCollapse:  d.toggleCollapse,
		CmdSetText:         d.setText,
		CmdAddLinkedFolder: d.addFolder(metadata.ExplorerLinked),
		CmdAddStaticFolder: d.addFolder(metadata.ExplorerStatic),
		CmdSelectFolder:    d.selectFolder,
		CmdRefreshFolder:   d.refreshFolder,
		CmdOpenFile:        d.openFile,
		CmdToggleMarkdown:  d.togglePreference(settings.KeyMarkdownEnabled, "Markdown"),
		CmdToggleHidden:    d.togglePreference(settings.KeyShowHiddenFiles, "Hidden files"),
		CmdResetSettings:   d.resetSettings,
		CmdSave:            d.save,
	}
	for name, h := range builtins {
		d.handlers[name] = h
	}
}

func snapshot(n diagram.Node) *codec.NodeSnapshot {
	s := codec.ToPersisted(&n)
	return &s
}

func requireArg(arg, what string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "missing %s", what)
	}
	return arg, nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (d *Dispatcher) convertNode(ctx context.Context, arg string) (Result, error) {
	id, err := requireArg(arg, "node ID")
	if err != nil {
		return Result{}, err
	}
	before, err := d.sess.Node(id)
	if err != nil {
		return Result{}, err
	}
	n, err := d.sess.ConvertToRich(ctx, id)
	if err != nil {
		return Result{}, err
	}
	msg := "Converted to rich content"
	if before.Shape == diagram.ShapeRichContent {
		msg = "Already rich content"
	}
	return Result{Message: msg, Node: snapshot(n)}, nil
}

func (d *Dispatcher) toggleCollapse(_ context.Context, arg string) (Result, error) {
	id, err := requireArg(arg, "node ID")
	if err != nil {
		return Result{}, err
	}
	collapsed, err := d.sess.ToggleCollapsed(id)
	if err != nil {
		return Result{}, err
	}
	n, err := d.sess.Node(id)
	if err != nil {
		return Result{}, err
	}
	msg := "Expanded"
	if collapsed {
		msg = "Collapsed"
	}
	return Result{Message: msg, Node: snapshot(n)}, nil
}

// setText takes "<id> <text>". The text may be empty.
func (d *Dispatcher) setText(ctx context.Context, arg string) (Result, error) {
	arg = strings.TrimLeft(arg, " \t\n")
	id, text := arg, ""
	if i := strings.IndexAny(arg, " \t\n"); i >= 0 {
		id, text = arg[:i], arg[i+1:]
	}
	if id == "" {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "missing node ID")
	}
	n, err := d.sess.SetText(ctx, id, text)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: "Text updated", Node: snapshot(n)}, nil
}

// addFolder takes an optional path. Without one the user is asked to pick
// a folder.
func (d *Dispatcher) addFolder(typ metadata.ExplorerType) Handler {
	return func(ctx context.Context, arg string) (Result, error) {
		path := strings.TrimSpace(arg)
		if path == "" {
			sel := d.sess.Filesystem().SelectFolder(ctx)
			switch {
			case sel.Canceled:
				return Result{Message: "No folder selected"}, nil
			case !sel.Success:
				return Result{}, errors.New(errors.ErrCodeInvalidPath, "select folder: %s", sel.Error)
			}
			path = sel.Path
		}
		root, rep, err := d.sess.AttachFolder(ctx, path, typ, "")
		if err != nil {
			return Result{}, err
		}
		return Result{
			Message: fmt.Sprintf("Added %s folder %s (%d entries)", typ, root.Data.FolderExplorer.Path, rep.Added),
			Node:    snapshot(root),
		}, nil
	}
}

func (d *Dispatcher) selectFolder(ctx context.Context, _ string) (Result, error) {
	sel := d.sess.Filesystem().SelectFolder(ctx)
	switch {
	case sel.Canceled:
		return Result{Message: "No folder selected"}, nil
	case !sel.Success:
		return Result{}, errors.New(errors.ErrCodeInvalidPath, "select folder: %s", sel.Error)
	}
	return Result{Message: sel.Path}, nil
}

// refreshFolder refreshes one path, or every linked folder when no path is
// given.
func (d *Dispatcher) refreshFolder(ctx context.Context, arg string) (Result, error) {
	paths := []string{strings.TrimSpace(arg)}
	if paths[0] == "" {
		paths = d.sess.LinkedPaths()
		if len(paths) == 0 {
			return Result{Message: "No linked folders"}, nil
		}
	}
	var applied, stale int
	for _, p := range paths {
		rep, err := d.sess.Refresh(ctx, p)
		if err != nil {
			return Result{}, err
		}
		if rep.Outcome == explorer.OutcomeStale {
			stale++
			continue
		}
		applied++
	}
	if applied == 0 {
		return Result{Message: "Folder is no longer in the document"}, nil
	}
	msg := fmt.Sprintf("Refreshed %d folder(s)", applied)
	if stale > 0 {
		msg += fmt.Sprintf(", %d no longer in the document", stale)
	}
	return Result{Message: msg}, nil
}

func (d *Dispatcher) openFile(ctx context.Context, arg string) (Result, error) {
	id, err := requireArg(arg, "node ID")
	if err != nil {
		return Result{}, err
	}
	res, err := d.sess.OpenFile(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !res.Success {
		return Result{}, errors.New(errors.ErrCodeInvalidPath, "open %s: %s", res.Path, res.Error)
	}
	return Result{Message: res.Content}, nil
}

func (d *Dispatcher) togglePreference(key, label string) Handler {
	return func(ctx context.Context, _ string) (Result, error) {
		v, err := d.sess.Preferences().Toggle(ctx, key)
		if err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeInternal, err, "toggle %s", key)
		}
		return Result{Message: fmt.Sprintf("%s %s", label, onOff(v))}, nil
	}
}

// resetSettings resets one preference key, or all of them.
func (d *Dispatcher) resetSettings(ctx context.Context, arg string) (Result, error) {
	prefs := d.sess.Preferences()
	key := strings.TrimSpace(arg)
	if key == "" {
		if err := prefs.ResetAll(ctx); err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeInternal, err, "reset settings")
		}
		return Result{Message: "Settings reset to defaults"}, nil
	}
	if !settings.IsKnown(key) {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "unknown setting %q", key)
	}
	if err := prefs.Reset(ctx, key); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeInternal, err, "reset %s", key)
	}
	return Result{Message: fmt.Sprintf("%s reset to %v", key, settings.Default(key))}, nil
}

// save takes an optional document name.
func (d *Dispatcher) save(ctx context.Context, arg string) (Result, error) {
	if err := d.sess.SaveAs(ctx, strings.TrimSpace(arg)); err != nil {
		return Result{}, err
	}
	return Result{Message: "Saved " + d.sess.Name()}, nil
}
