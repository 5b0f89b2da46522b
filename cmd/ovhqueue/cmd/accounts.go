package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage OVH accounts in data/accounts.json",
	}
	cmd.AddCommand(newAccountsListCmd(), newAccountsAddCmd(), newAccountsRemoveCmd())
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			store, err := openAccountStore()
			if err != nil {
				return err
			}
			accounts, err := store.List(cobraCmd.Context())
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Fprintf(cobraCmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", a.ID, a.Alias, a.Zone, a.EndpointRegion)
			}
			return nil
		},
	}
}

func newAccountsAddCmd() *cobra.Command {
	var alias, zone, region, appKey, appSecret, consumerKey string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an OVH account",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			accountStore, err := openAccountStore()
			if err != nil {
				return err
			}
			account := models.Account{
				ID:                uuid.NewString(),
				Alias:             alias,
				Zone:              zone,
				EndpointRegion:    region,
				ApplicationKey:    appKey,
				ApplicationSecret: appSecret,
				ConsumerKey:       consumerKey,
			}
			if err := accountStore.Put(cobraCmd.Context(), account); err != nil {
				return err
			}
			fmt.Fprintf(cobraCmd.OutOrStdout(), "added account %s\n", account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "default", "human-readable alias")
	cmd.Flags().StringVar(&zone, "zone", "IE", "OVH subsidiary code")
	cmd.Flags().StringVar(&region, "region", models.EndpointRegionEU, "endpoint region: ovh-eu | ovh-us | ovh-ca")
	cmd.Flags().StringVar(&appKey, "application-key", "", "OVH application key")
	cmd.Flags().StringVar(&appSecret, "application-secret", "", "OVH application secret")
	cmd.Flags().StringVar(&consumerKey, "consumer-key", "", "OVH consumer key")
	cmd.MarkFlagRequired("application-key")
	cmd.MarkFlagRequired("application-secret")
	cmd.MarkFlagRequired("consumer-key")

	return cmd
}

func newAccountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <account-id>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			accountStore, err := openAccountStore()
			if err != nil {
				return err
			}
			return accountStore.Delete(cobraCmd.Context(), args[0])
		},
	}
}
