// Package feedback turns receiver state into something a person can see:
// it picks a feedback key, resolves it to a 5x5 image and hands images and
// pairing indications to a Sink.
package feedback

import (
	"strconv"

	"github.com/mcbrc/rcrx/buttons"
	"github.com/mcbrc/rcrx/protocol"
)

// Select picks the feedback key for the current state. The first pressed
// button in registry order wins, then the stick direction when outside the
// deadzone, else protocol.NeutralKey.
func Select(joy protocol.JoyState, btns []buttons.Button) string {
	for _, b := range btns {
		if b.Pressed {
			return b.Key
		}
	}
	if joy.Strength > protocol.DeadzoneStrength {
		return strconv.Itoa(joy.DirArrow)
	}
	return protocol.NeutralKey
}
