package repository

import (
	"strconv"
	"strings"
)

// WidgetURL builds the embed link for an entry. The fragment carries the
// entry name unescaped, as the player widget expects.
func WidgetURL(host string, partnerID, uiconfID int, entryID, name string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(host, "/"))
	b.WriteString("/index.php/kwidget/wid/_")
	b.WriteString(strconv.Itoa(partnerID))
	b.WriteString("/uiconf_id/")
	b.WriteString(strconv.Itoa(uiconfID))
	b.WriteString("/entry_id/")
	b.WriteString(entryID)
	b.WriteString("/v/flash#")
	b.WriteString(name)
	return b.String()
}
