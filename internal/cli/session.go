package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"bankledger/internal/core"
	"bankledger/internal/log"
)

// Session runs the main menu until the user exits or the input ends.
func (a *App) Session(ctx context.Context) error {
	if err := a.Open(ctx); err != nil {
		return err
	}
	// A session can outlive the summary TTL; expire cached months meanwhile.
	if ttl := a.Config.SummaryCacheTTL; ttl > 0 {
		ctx, cancel := context.WithCancel(log.NewContext(ctx, a.Logger.WithComponent(log.ComponentCache)))
		defer cancel()
		go a.caches.Run(ctx, ttl)
	}

	p := a.prompt()
	for {
		fmt.Fprintln(a.Out, strings.Repeat("=", 50))
		fmt.Fprintln(a.Out, "Welcome to the Banking System")
		fmt.Fprintln(a.Out, strings.Repeat("=", 50))
		fmt.Fprintln(a.Out, "1. Create Account")
		fmt.Fprintln(a.Out, "2. Login")
		fmt.Fprintln(a.Out, "3. Exit")

		choice, err := p.Line("Enter choice (1-3): ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(choice) {
		case "1":
			err = a.createInteractive(ctx)
		case "2":
			var acc core.Account
			acc, err = a.login(ctx, "", "")
			if err == nil {
				fmt.Fprintf(a.Out, "Login successful! Welcome %s\n\n", acc.Name)
				err = a.bankingMenu(ctx, acc)
			} else if errors.Is(err, core.ErrTooManyAttempts) {
				fmt.Fprintln(a.Out, describe(err))
				err = nil
			}
		case "3":
			fmt.Fprintln(a.Out, "Thank you for using the Banking System!")
			return nil
		default:
			fmt.Fprintln(a.Out, "Invalid choice! Please enter 1, 2, or 3.")
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (a *App) createInteractive(ctx context.Context) error {
	p := a.prompt()
	fmt.Fprintln(a.Out, "Creating a New Account")
	name, err := p.Line("Enter your name: ")
	if err != nil {
		return err
	}
	balance, err := p.Balance("Enter initial deposit: ")
	if err != nil {
		return err
	}
	password, err := p.Password("Enter password: ")
	if err != nil {
		return err
	}
	acc, err := a.ledger.CreateAccount(ctx, name, balance, password)
	if err != nil {
		fmt.Fprintln(a.Out, describe(err))
		return nil
	}
	fmt.Fprintf(a.Out, "Account created successfully! Your Account Number: %s\n\n", acc.Number)
	return nil
}

// bankingMenu serves a logged-in holder until logout. Ledger failures are
// shown and the menu continues; only input and storage errors end it.
func (a *App) bankingMenu(ctx context.Context, acc core.Account) error {
	p := a.prompt()
	for {
		fmt.Fprintln(a.Out, strings.Repeat("=", 40))
		fmt.Fprintf(a.Out, " Banking Menu - %s\n", acc.Name)
		fmt.Fprintln(a.Out, strings.Repeat("=", 40))
		fmt.Fprintln(a.Out, "1. Deposit Money")
		fmt.Fprintln(a.Out, "2. Withdraw Money")
		fmt.Fprintln(a.Out, "3. Transfer Money")
		fmt.Fprintln(a.Out, "4. Update Account Info")
		fmt.Fprintln(a.Out, "5. Show Dashboard")
		fmt.Fprintln(a.Out, "6. Logout")

		choice, err := p.Line("Enter your choice: ")
		if err != nil {
			return err
		}

		switch strings.TrimSpace(choice) {
		case "1":
			err = a.depositInteractive(ctx, acc)
		case "2":
			err = a.withdrawInteractive(ctx, acc)
		case "3":
			err = a.transferInteractive(ctx, acc)
		case "4":
			err = a.profileInteractive(ctx, &acc)
		case "5":
			err = a.dashboard(ctx, acc.Number)
		case "6":
			fmt.Fprintln(a.Out, "Logging out... Thank You")
			return nil
		default:
			fmt.Fprintln(a.Out, "Invalid choice! Try again.")
		}
		if err != nil {
			return err
		}
	}
}

// report prints a ledger failure. Errors the holder can act on are shown
// and swallowed; anything else is returned.
func (a *App) report(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrRecipientNotFound),
		errors.Is(err, core.ErrSelfTransfer),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidField),
		errors.Is(err, core.ErrPartialTransfer):
		fmt.Fprintln(a.Out, describe(err))
		return nil
	default:
		return err
	}
}

func (a *App) depositInteractive(ctx context.Context, acc core.Account) error {
	p := a.prompt()
	amount, err := p.Amount("Enter deposit amount: ")
	if err != nil {
		return err
	}
	category, err := p.Line("Enter category for this deposit (Food/Rent/Bills/Other): ")
	if err != nil {
		return err
	}
	rec, err := a.ledger.Deposit(ctx, acc.Number, amount, category)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.Out, "Deposit successful! Current balance: %s\n\n", core.FormatAmount(rec.BalanceAfter))
	return nil
}

func (a *App) withdrawInteractive(ctx context.Context, acc core.Account) error {
	p := a.prompt()
	amount, err := p.Amount("Enter withdrawal amount: ")
	if err != nil {
		return err
	}
	// Check before asking for a category; Withdraw checks again under the lock.
	current, err := a.ledger.Account(ctx, acc.Number)
	if err != nil {
		return err
	}
	if amount.GreaterThan(current.Balance) {
		return a.report(core.ErrInsufficientFunds)
	}
	category, err := p.Line("Enter category for this withdrawal (Food/Rent/Bills/Other): ")
	if err != nil {
		return err
	}
	rec, err := a.ledger.Withdraw(ctx, acc.Number, amount, category)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.Out, "Withdrawal successful! Current balance: %s\n\n", core.FormatAmount(rec.BalanceAfter))
	return nil
}

func (a *App) transferInteractive(ctx context.Context, acc core.Account) error {
	p := a.prompt()
	recipient, err := p.Line("Enter recipient account number: ")
	if err != nil {
		return err
	}
	amount, err := p.Amount("Enter amount to transfer: ")
	if err != nil {
		return err
	}
	res, err := a.ledger.Transfer(ctx, acc.Number, strings.TrimSpace(recipient), amount)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.Out, "Transfer successful! New balance: %s\n\n", core.FormatAmount(res.Sender.BalanceAfter))
	return nil
}

func (a *App) profileInteractive(ctx context.Context, acc *core.Account) error {
	p := a.prompt()
	fmt.Fprintln(a.Out, "Update Account Info")
	name, err := p.Line("Enter new name (leave blank to keep unchanged): ")
	if err != nil {
		return err
	}
	password, err := p.Password("Enter new password (leave blank to keep unchanged): ")
	if err != nil {
		return err
	}
	if err := a.ledger.UpdateProfile(ctx, acc.Number, name, password); err != nil {
		return a.report(err)
	}
	if updated, err := a.ledger.Account(ctx, acc.Number); err == nil {
		*acc = updated
	}
	fmt.Fprintln(a.Out, "Account updated successfully!")
	return nil
}
