package models

type UserStatus string
type SubscriptionStatus string
type ChatMessageStatus string
type ChatAuthorRole string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"

	SubscriptionStatusPending   SubscriptionStatus = "PENDING"
	SubscriptionStatusApproved  SubscriptionStatus = "APPROVED"
	SubscriptionStatusRejected  SubscriptionStatus = "REJECTED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"

	ChatMessageStatusPending   ChatMessageStatus = "PENDING"
	ChatMessageStatusDelivered ChatMessageStatus = "DELIVERED"
	ChatMessageStatusRead      ChatMessageStatus = "READ"
	ChatMessageStatusFailed    ChatMessageStatus = "FAILED"

	ChatAuthorUser  ChatAuthorRole = "user"
	ChatAuthorAdmin ChatAuthorRole = "admin"
)

func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusSuspended
}

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusApproved,
		SubscriptionStatusRejected, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// subscriptionTransitions - разрешённые переходы статусов подписки
var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusPending:  {SubscriptionStatusApproved, SubscriptionStatusRejected, SubscriptionStatusCancelled},
	SubscriptionStatusApproved: {SubscriptionStatusCancelled},
}

// CanTransitionTo сообщает, допустим ли переход из s в next.
// REJECTED и CANCELLED конечные.
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ChatMessageStatus) IsValid() bool {
	switch s {
	case ChatMessageStatusPending, ChatMessageStatusDelivered,
		ChatMessageStatusRead, ChatMessageStatusFailed:
		return true
	}
	return false
}
