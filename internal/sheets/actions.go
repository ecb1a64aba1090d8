package sheets

// Query actions of the remote web app.
const (
	QuerySettings   = "readSettings"
	QueryCategories = "readCategories"
	QueryTrucks     = "readTrucks"
	QueryInventory  = "readInventory"
	QueryHistory    = "readHistory"
	QueryUsers      = "readUsers"
	QueryLowStock   = "getLowStockItems"
)

// Command actions of the remote web app. The names are a wire contract
// shared with other clients of the same sheet.
const (
	CmdUpdateQuantity = "updatePartQuantity"
	CmdAddTransaction = "addTransaction"
	CmdAddPart        = "addPart"
	CmdSaveCategory   = "saveCategory"
	CmdDeleteCategory = "deleteCategory"
	CmdSaveTruck      = "saveTruck"
	CmdDeleteTruck    = "deleteTruck"
	CmdSaveUser       = "saveUser"
	CmdDeleteUser     = "deleteUser"
	CmdChangePIN      = "changePIN"
	CmdSaveSetting    = "saveSetting"
	CmdLogLogin       = "logLogin"
)
