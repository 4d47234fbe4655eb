package handler

import (
	"fmt"

	"eth-faucet/internal/model"
	"eth-faucet/internal/util"
)

// message turns an admission decision into the text shown by the UI.
func message(d model.Decision, symbol string) string {
	switch d.Outcome {
	case model.Accepted:
		return fmt.Sprintf("%s request added to the queue (%d tasks remaining). Enjoy!", symbol, d.QueueDepth)
	case model.RejectedInvalidDestination:
		return "Your account address is invalid. Please check your account address (it should start with 0x)."
	case model.RejectedRequesterBlocked:
		return fmt.Sprintf("Your ip address has already requested %s today :) The remaining time for next request is %s",
			symbol, util.FormatWait(d.Remaining))
	case model.RejectedDestinationBlocked:
		return fmt.Sprintf("Your wallet address has already requested %s today :) The remaining time for next request is %s.",
			symbol, util.FormatWait(d.Remaining))
	case model.RejectedQueueFull:
		return "The faucet queue is full. Please try again later."
	default:
		// missing requester identity stays generic for the user
		return fmt.Sprintf("%s request fail. Please try again!", symbol)
	}
}

func throttledMessage(symbol string) string {
	return fmt.Sprintf("Too many %s requests from your ip address. Please try again later.", symbol)
}
