package middleware

import "github.com/ddurler/icomsim/pkg/frame"

func resetMenu(ctx *Context) {}

// getConversationMenu is a stub: menu handling is out of scope, so any
// AF_MENU is simply refused.
func getConversationMenu(df frame.DataFrame) (frame.RawFrame, bool) {
	if !df.IsMessage() || df.Tag() != AfMenu {
		return frame.RawFrame{}, false
	}
	return frame.NewNack(), true
}
