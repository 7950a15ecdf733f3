package lifecycle

import (
	"fmt"

	"github.com/spec-kit/order-desk/internal/domain"
)

const (
	msgWelcome       = "Hello " + PlaceholderRequester + ", please provide your assignment details here. An admin will be with you shortly."
	msgChannelReady  = "A private channel has been created for you: " + PlaceholderChannel
	msgOrderAnnounce = "New order created: " + PlaceholderOrder

	msgAckDoable    = "Order marked as doable."
	msgAckNotDoable = "Order marked as not doable."
	msgAckRevision  = "Revision requested."
	msgAckComplete  = "Order marked as complete and channel archived."

	msgRejected = "Hello " + PlaceholderRequester + ", unfortunately, we are unable to assist with your request at this time. We apologize for any inconvenience."
	msgRevision = PlaceholderRequester + ", please provide the revision details in this channel."
	msgClosed   = "This order has been marked as complete and the channel has been archived."

	msgWrongIntake       = "Please use this command in the designated channel."
	msgWrongChannel      = "This command can only be used in an order channel."
	msgNotAdmin          = "You are not authorized to use this command."
	msgNotRequester      = "Only the requester of this order can request a revision."
	msgRequesterNotFound = "Could not find the requester in this channel."
)

func doableText(contactEmail string) string {
	if contactEmail == "" {
		return PlaceholderRequester + ", your assignment is doable. An admin will follow up with the next steps here."
	}
	return fmt.Sprintf("%s, your assignment is doable. Please send your assignment details to the email: %s", PlaceholderRequester, contactEmail)
}

func unavailableText(event Event, state domain.OrderState) string {
	return fmt.Sprintf("This order is %s; %s is not available.", stateLabel(state), event.Label())
}

func stateLabel(state domain.OrderState) string {
	switch state {
	case domain.OrderStateOpen:
		return "open"
	case domain.OrderStateDoable:
		return "marked as doable"
	case domain.OrderStateNotDoable:
		return "marked as not doable"
	case domain.OrderStateCompleted:
		return "completed"
	}
	return string(state)
}
