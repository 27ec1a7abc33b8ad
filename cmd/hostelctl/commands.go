package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/skyhostel/sky_hostel/services"
	"github.com/spf13/cobra"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Migrate(); err != nil {
				return err
			}
			fmt.Println("Database migrated")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile every pending payment against Remita",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Sweep.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [rrr]",
		Short: "Query Remita for one reference and apply its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Reconciler.Reconcile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"rrr":      args[0],
				"status":   res.Status,
				"previous": res.Previous,
				"changed":  res.Changed,
			})
		},
	}
}

func issueCmd() *cobra.Command {
	var (
		firstName, lastName, email, phone, option string
		amount                                    int64
	)

	cmd := &cobra.Command{
		Use:   "issue [matric-number]",
		Short: "Generate a Remita reference for a registered student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			student, err := c.Store.FindStudentByMatric(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("student %s: %w", args[0], err)
			}
			if firstName == "" {
				firstName = student.FirstName
			}
			if lastName == "" {
				lastName = student.LastName
			}
			if email == "" {
				email = student.Email
			}
			if amount == 0 {
				amount, err = services.CalculateAmount(services.PaymentOption(option), 0, c.Settings.HostelFeeAmount)
				if err != nil {
					return err
				}
			}

			res, err := c.Issuance.Issue(cmd.Context(), services.IssueRequest{
				MatricNumber: student.MatricNumber,
				FirstName:    firstName,
				LastName:     lastName,
				Email:        email,
				Amount:       amount,
				PhoneNumber:  phone,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"rrr":           res.RRR,
				"transactionId": res.TransactionID,
				"amount":        amount,
			})
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "Payer first name (defaults to the student's)")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Payer last name (defaults to the student's)")
	cmd.Flags().StringVar(&email, "email", "", "Payer email (defaults to the student's)")
	cmd.Flags().StringVar(&phone, "phone", "", "Payer phone number")
	cmd.Flags().StringVar(&option, "option", string(services.PaymentOptionFull), "Payment option when --amount is not given (FULL, HALF)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount to charge")

	return cmd
}
