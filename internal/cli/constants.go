package cli

// TabWidth is the padding used by tabular output.
const TabWidth = 2
