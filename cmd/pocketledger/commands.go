package main

import (
	"context"
	"fmt"

	"github.com/pocketledger/pocketledger-go/authapi"
)

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.sessions.Logout()
	case "whoami":
		return a.whoami()
	case "budget":
		return a.showBudget(ctx)
	case "categories":
		return a.listCategories(ctx)
	case "goals":
		return a.listGoals(ctx)
	case "notifications":
		return a.listNotifications(ctx)
	case "forgot-password":
		return a.forgotPassword(ctx, args)
	case "verify-reset-code":
		return a.verifyResetCode(ctx, args)
	case "reset-password":
		return a.resetPassword(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}

	user, err := a.sessions.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s <%s>\n", user.FullName, user.Email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: register <full-name> <email> <password> [mobile] [date-of-birth]")
	}

	params := authapi.RegisterParams{
		FullName: args[0],
		Email:    args[1],
		Password: args[2],
	}
	if len(args) > 3 {
		params.MobileNumber = args[3]
	}
	if len(args) > 4 {
		params.DateOfBirth = args[4]
	}

	user, err := a.sessions.Register(ctx, params)
	if err != nil {
		return err
	}

	fmt.Printf("Welcome, %s! Your account is ready.\n", user.FullName)
	return nil
}

func (a *app) whoami() error {
	if !a.sessions.LoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	user, ok := a.sessions.CurrentUser()
	if !ok {
		fmt.Println("Logged in, but no cached profile.")
		return nil
	}

	fmt.Printf("%s <%s>\n", user.FullName, user.Email)

	details, err := a.sessions.AccessTokenDetails()
	if err == nil && !details.ExpiresAt.IsZero() {
		state := "valid"
		if details.Expired() {
			state = "expired, will be renewed on the next request"
		}
		fmt.Printf("Access token %s until %s\n", state, details.ExpiresAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func (a *app) showBudget(ctx context.Context) error {
	budget, err := a.budget.Get(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Monthly income:  %.2f %s\n", budget.MonthlyIncome, budget.Currency)
	fmt.Printf("Savings target:  %.2f %s\n", budget.SavingsTarget, budget.Currency)
	fmt.Printf("Spent:           %.2f %s\n", budget.Spent, budget.Currency)
	fmt.Printf("Remaining:       %.2f %s\n", budget.Remaining, budget.Currency)
	return nil
}

func (a *app) listCategories(ctx context.Context) error {
	categories, err := a.categories.List(ctx)
	if err != nil {
		return err
	}

	if len(categories) == 0 {
		fmt.Println("No categories yet.")
		return nil
	}
	for _, c := range categories {
		fmt.Printf("%-20s allocated %.2f, spent %.2f\n", c.Name, c.Allocated, c.Spent)
	}
	return nil
}

func (a *app) listGoals(ctx context.Context) error {
	goals, err := a.goals.List(ctx)
	if err != nil {
		return err
	}

	if len(goals) == 0 {
		fmt.Println("No goals yet.")
		return nil
	}
	for _, g := range goals {
		fmt.Printf("%-20s %.2f of %.2f saved\n", g.Name, g.SavedAmount, g.TargetAmount)
	}
	return nil
}

func (a *app) listNotifications(ctx context.Context) error {
	notifications, err := a.notifications.List(ctx)
	if err != nil {
		return err
	}

	if len(notifications) == 0 {
		fmt.Println("No notifications.")
		return nil
	}
	for _, n := range notifications {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Printf("%s %s - %s\n", marker, n.Title, n.Body)
	}
	return nil
}

func (a *app) forgotPassword(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: forgot-password <email>")
	}

	msg, err := a.sessions.ForgotPassword(ctx, args[0])
	if err != nil {
		return err
	}

	if msg == "" {
		msg = "If that email exists, a reset code is on its way."
	}
	fmt.Println(msg)
	return nil
}

func (a *app) verifyResetCode(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: verify-reset-code <email> <code>")
	}

	valid, msg, err := a.sessions.VerifyResetCode(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	if msg != "" {
		fmt.Println(msg)
	}
	if !valid {
		return fmt.Errorf("reset code is not valid")
	}

	fmt.Println("Code verified.")
	return nil
}

func (a *app) resetPassword(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: reset-password <email> <code> <new-password>")
	}

	msg, err := a.sessions.ResetPassword(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	if msg == "" {
		msg = "Password updated."
	}
	fmt.Println(msg)
	return nil
}
