package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/nav"
	"github.com/dmitrijs2005/storefront/internal/client/services"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// getSimpleText, getPassword and getYesNo are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getYesNo = GetYesNo

var errPasswordMismatch = errors.New("passwords do not match")

// Home moves to the landing route.
func (a *App) Home(ctx context.Context) error {
	a.nav.Navigate(nav.RouteHome)
	if st := a.session.State(); st.User != nil {
		fmt.Fprintf(a.out, "Welcome back, %s! Type 'products' to browse the catalog.\n", st.User.DisplayName())
		return nil
	}
	fmt.Fprintln(a.out, "Welcome to Storefront. Type 'login' or 'register' to get started.")
	return nil
}

// Login prompts for credentials and signs in. On success the route the user
// was sent away from is resumed, the product list otherwise.
//
// The password is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	if st := a.session.State(); st.User != nil {
		fmt.Fprintf(a.out, "Already logged in as %s\n", st.User.Username)
		return nil
	}
	a.nav.Navigate(nav.RouteLogin)

	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.session.Login(ctx, username, string(password))
	if err != nil {
		a.printError(err, services.MsgLoginFailed)
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", user.DisplayName())
	return a.resume(ctx)
}

// Register prompts for the account details, asking for the password twice,
// then creates the account and signs in.
func (a *App) Register(ctx context.Context) error {
	if st := a.session.State(); st.User != nil {
		fmt.Fprintf(a.out, "Already logged in as %s\n", st.User.Username)
		return nil
	}
	a.nav.Navigate(nav.RouteRegister)

	var reg models.Registration
	var err error
	if reg.Username, err = getSimpleText(a.reader, "Username", a.out); err != nil {
		return err
	}
	if reg.Email, err = getSimpleText(a.reader, "Email", a.out); err != nil {
		return err
	}
	if reg.FullName, err = getSimpleText(a.reader, "Full name (optional)", a.out); err != nil {
		return err
	}

	password, err := getPassword(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.reader, "Confirm password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		fmt.Fprintln(a.out, "Passwords do not match")
		return errPasswordMismatch
	}
	reg.Password = string(password)

	user, err := a.session.Register(ctx, reg)
	if err != nil {
		a.printError(err, services.MsgRegistrationFailed)
		return err
	}

	fmt.Fprintf(a.out, "Account created. Welcome, %s!\n", user.DisplayName())
	return a.resume(ctx)
}

// Logout forgets the local session and returns to the landing route.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	err := a.session.Logout(ctx)
	a.takeNotice()
	a.nav.Navigate(nav.RouteHome)
	if err != nil {
		a.log.Error(ctx, "failed to clear session", "error", err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// WhoAmI prints the signed-in user.
func (a *App) WhoAmI(ctx context.Context) error {
	st := a.session.State()
	if st.User == nil {
		fmt.Fprintf(a.out, "Not logged in (%s)\n", st.Status)
		return nil
	}
	u := st.User
	fmt.Fprintf(a.out, "%s <%s>", u.Username, u.Email)
	if u.FullName != "" {
		fmt.Fprintf(a.out, " %s", u.FullName)
	}
	fmt.Fprintln(a.out)
	return nil
}

// resume continues to the route the guard turned the user away from.
func (a *App) resume(ctx context.Context) error {
	next := a.nav.TakePending(nav.RouteProducts)
	switch next {
	case nav.RouteProducts:
		return a.Products(ctx, nil)
	case nav.RouteProductNew:
		return a.Add(ctx)
	}

	rest := strings.TrimPrefix(next, nav.RouteProducts+"/")
	idArg, edit := strings.CutSuffix(rest, "/edit")
	if _, err := parseID(idArg); err != nil {
		return a.Products(ctx, nil)
	}
	if edit {
		return a.Edit(ctx, []string{idArg})
	}
	return a.Show(ctx, []string{idArg})
}

// printError renders err for the user.
func (a *App) printError(err error, fallback string) {
	fmt.Fprintln(a.out, "Error:", common.Message(err, fallback))
}
