package controller

import "github.com/zhouzirui/concierge/internal/model/draft"

// Draft returns the current draft view.
func (c *Controller) Draft() draft.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// ToggleFieldEditing flips the To/Subject section between read and edit.
// Leaving edit mode keeps whatever was typed.
func (c *Controller) ToggleFieldEditing() (draft.View, error) {
	return c.updateDraft(func(v *draft.View) error {
		v.EditingFields = !v.EditingFields
		return nil
	})
}

// ToggleBodyEditing flips the body section between read and edit.
func (c *Controller) ToggleBodyEditing() (draft.View, error) {
	return c.updateDraft(func(v *draft.View) error {
		v.EditingBody = !v.EditingBody
		return nil
	})
}

// EditTo replaces the recipient line. The fields section must be in edit mode.
func (c *Controller) EditTo(to string) error {
	_, err := c.updateDraft(func(v *draft.View) error {
		if !v.EditingFields {
			return ErrNotEditing
		}
		v.Email.To = to
		return nil
	})
	return err
}

// EditSubject replaces the subject. The fields section must be in edit mode.
func (c *Controller) EditSubject(subject string) error {
	_, err := c.updateDraft(func(v *draft.View) error {
		if !v.EditingFields {
			return ErrNotEditing
		}
		v.Email.Subject = subject
		return nil
	})
	return err
}

// EditBody replaces the body. The body section must be in edit mode.
func (c *Controller) EditBody(body string) error {
	_, err := c.updateDraft(func(v *draft.View) error {
		if !v.EditingBody {
			return ErrNotEditing
		}
		v.Email.Body = body
		return nil
	})
	return err
}

// CloseDraft hides the draft view. Its content is kept until the next draft
// request replaces it.
func (c *Controller) CloseDraft() draft.View {
	c.mu.Lock()
	c.view.Open = false
	c.view.EditingFields = false
	c.view.EditingBody = false
	view := c.view
	c.mu.Unlock()

	c.observer.DraftChanged(view)
	return view
}

func (c *Controller) updateDraft(fn func(v *draft.View) error) (draft.View, error) {
	c.mu.Lock()
	if !c.view.Open {
		view := c.view
		c.mu.Unlock()
		return view, ErrDraftClosed
	}
	next := c.view
	if err := fn(&next); err != nil {
		view := c.view
		c.mu.Unlock()
		return view, err
	}
	c.view = next
	c.mu.Unlock()

	c.observer.DraftChanged(next)
	return next, nil
}
