// Package walker discovers and watches the indexable files of a project.
//
// enumerate() recursively lists every file under the project root that the
// ignore engine does not exclude, pruning ignored directories without
// descending into them. watch() subscribes to create/modify/delete events
// for the same set, using fsnotify as the primary mechanism with polling as
// a fallback for environments where fsnotify fails (network mounts, some
// container filesystems). Events are debounced to coalesce rapid changes
// from editors and git operations, and events under the project's state
// directory are suppressed to avoid feedback loops with the store and
// generated bundle artifacts.
package walker
