package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podcastforge/internal/api"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List voices and manage your default host voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listVoices(cmd, ctx)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the text-to-speech voice catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listVoices(cmd, ctx)
		},
	})
	cmd.AddCommand(newVoicePreferenceCommand(ctx))
	cmd.AddCommand(newVoiceSetCommand(ctx))
	return cmd
}

func listVoices(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withClient(func(client *api.Client) error {
		voices, err := client.Voices(cmd.Context())
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, voices)
		}
		if len(voices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No voices available")
			return nil
		}
		rows := make([][]string, 0, len(voices))
		for _, v := range voices {
			rows = append(rows, []string{v.SpeakerID, v.Name, v.Gender, v.Locale})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Gender", "Locale"}, rows, nil))
		return nil
	})
}

func newVoicePreferenceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preference",
		Short: "Show your saved host voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				pref, err := client.VoicePreference(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, pref)
				}
				if pref == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No voice preference saved; defaults apply")
					return nil
				}
				renderKeyValues(cmd.OutOrStdout(), [][2]string{
					{"Host 1", pref.Host1VoiceID},
					{"Host 2", pref.Host2VoiceID},
					{"Updated", formatTimestamp(pref.UpdatedAt)},
				})
				return nil
			})
		},
	}
}

func newVoiceSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <host1-voice-id> <host2-voice-id>",
		Short: "Save your default host voices",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				pref := api.VoicePreference{Host1VoiceID: args[0], Host2VoiceID: args[1]}
				if err := client.SaveVoicePreference(cmd.Context(), pref); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, pref)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved voices %s and %s\n", args[0], args[1])
				return nil
			})
		},
	}
}
