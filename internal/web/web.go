// Package web bundles the gateway's UI documents into the binary so
// the device serves its interface without any files on the storage
// card.
package web

import "embed"

//go:embed static
var assets embed.FS

// Pages and assets served by the HTTP layer. Templates contain
// %%NAME%% markers substituted at request time.
var (
	IndexHTML    = mustAsset("index.html")
	ListHTML     = mustAsset("list.html")
	MessageHTML  = mustAsset("message.html")
	LoggingHTML  = mustAsset("logging.html")
	SettingsHTML = mustAsset("settings.html")
	StyleCSS     = mustAsset("style.css")
	ScriptJS     = mustAsset("script.js")
)

func mustAsset(name string) []byte {
	data, err := assets.ReadFile("static/" + name)
	if err != nil {
		panic("web: missing embedded asset " + name)
	}
	return data
}
