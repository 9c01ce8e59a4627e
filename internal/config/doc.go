// Package config loads the host settings for keystage.
//
// Settings come from three places, later ones overriding earlier ones:
//
//  1. Built-in defaults (Defaults)
//  2. A settings file, TOML or YAML chosen by extension
//  3. KEYSTAGE_* environment variables, e.g. KEYSTAGE_STARTUP_IDLE_DELAY=50ms
//
// The merged result is decoded strictly into Settings: unknown keys are an
// error so typos do not silently fall back to defaults.
//
// Settings are separate from the user's init.lua. The script decides what
// runs; settings decide how the host runs it.
package config
