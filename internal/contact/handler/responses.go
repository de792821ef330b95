package handler

import "reconcile/internal/contact/models"

// IdentifyResponse is the HTTP response for POST /identify and GET /contacts/{id}.
type IdentifyResponse struct {
	Contact ContactResponse `json:"contact"`
}

// ContactResponse is the consolidated cluster view. The primaryContatctId
// spelling is part of the public wire format.
type ContactResponse struct {
	PrimaryContactID    int64    `json:"primaryContatctId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}

// FromView converts a consolidated view to an HTTP response. Lists are never null.
func FromView(view *models.ConsolidatedView) *IdentifyResponse {
	resp := &IdentifyResponse{Contact: ContactResponse{
		PrimaryContactID:    view.PrimaryID.Int64(),
		Emails:              make([]string, 0, len(view.Emails)),
		PhoneNumbers:        make([]string, 0, len(view.PhoneNumbers)),
		SecondaryContactIDs: make([]int64, 0, len(view.SecondaryIDs)),
	}}
	resp.Contact.Emails = append(resp.Contact.Emails, view.Emails...)
	resp.Contact.PhoneNumbers = append(resp.Contact.PhoneNumbers, view.PhoneNumbers...)
	for _, secondaryID := range view.SecondaryIDs {
		resp.Contact.SecondaryContactIDs = append(resp.Contact.SecondaryContactIDs, secondaryID.Int64())
	}
	return resp
}
